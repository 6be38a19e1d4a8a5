package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/veritasmarket/veritas-backend/pkg/enums"
)

// DisputeAction is one entry in the append-only action log. Only successful
// transitions write a row.
type DisputeAction struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisputeID uuid.UUID               `gorm:"column:dispute_id;type:uuid;not null;index"`
	ActorID   uuid.UUID               `gorm:"column:actor_id;type:uuid;not null"`
	Type      enums.DisputeActionType `gorm:"column:type;type:dispute_action_type_enum;not null"`
	Detail    json.RawMessage         `gorm:"column:detail;type:jsonb"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
}
