package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/veritasmarket/veritas-backend/pkg/enums"
)

// DisputeEvidence is an append-only attachment row. Rows are never updated or
// deleted once written.
type DisputeEvidence struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisputeID   uuid.UUID          `gorm:"column:dispute_id;type:uuid;not null;index"`
	UploaderID  uuid.UUID          `gorm:"column:uploader_id;type:uuid;not null"`
	Type        enums.EvidenceType `gorm:"column:type;type:evidence_type_enum;not null"`
	URL         string             `gorm:"column:url;type:text;not null"`
	Description *string            `gorm:"column:description;type:text"`
	Metadata    json.RawMessage    `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}
