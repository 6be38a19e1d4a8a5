package models

import (
	"time"

	"github.com/google/uuid"
)

// DisputeComment is an append-only discussion row on a dispute.
type DisputeComment struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisputeID uuid.UUID `gorm:"column:dispute_id;type:uuid;not null;index"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	Body      string    `gorm:"column:body;type:text;not null"`
	Internal  bool      `gorm:"column:internal;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
