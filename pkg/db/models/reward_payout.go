package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veritasmarket/veritas-backend/pkg/enums"
)

// RewardPayout is an append-only payout instruction for a moderator reward.
// Rows record the amount owed; the actual transfer is executed elsewhere.
// At most one payout exists per (dispute, moderator) pair.
type RewardPayout struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ModeratorID uuid.UUID             `gorm:"column:moderator_id;type:uuid;not null"`
	DisputeID   uuid.UUID             `gorm:"column:dispute_id;type:uuid;not null"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(18,9);not null"`
	Points      int                   `gorm:"column:points;not null"`
	Severity    enums.DisputeSeverity `gorm:"column:severity;type:dispute_severity_enum;not null"`
	Level       enums.ModeratorLevel  `gorm:"column:level;type:moderator_level_enum;not null"`
	FastBonus   bool                  `gorm:"column:fast_bonus;not null;default:false"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
