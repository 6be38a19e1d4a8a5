package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veritasmarket/veritas-backend/pkg/enums"
)

// ModeratorStats tracks a moderator's capability level and cumulative counters.
// Rows are created lazily on first contact and never deleted. Level is
// promotion-only.
type ModeratorStats struct {
	ModeratorID        uuid.UUID            `gorm:"column:moderator_id;type:uuid;primaryKey"`
	Level              enums.ModeratorLevel `gorm:"column:level;type:moderator_level_enum;not null;default:'COMMUNITY'"`
	DisputesResolved   int                  `gorm:"column:disputes_resolved;not null;default:0"`
	Points             int                  `gorm:"column:points;not null;default:0"`
	TotalEarned        decimal.Decimal      `gorm:"column:total_earned;type:numeric(18,9);not null;default:0"`
	CurrentMonthEarned decimal.Decimal      `gorm:"column:current_month_earned;type:numeric(18,9);not null;default:0"`
	Active             bool                 `gorm:"column:active;not null;default:true"`
	JoinedAt           time.Time            `gorm:"column:joined_at;autoCreateTime"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
