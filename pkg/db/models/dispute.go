package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veritasmarket/veritas-backend/pkg/enums"
)

// Dispute is the root aggregate of the moderation workflow. Version backs the
// optimistic concurrency checks used by assignment and status transitions.
type Dispute struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type            enums.DisputeType     `gorm:"column:type;type:dispute_type_enum;not null"`
	Severity        enums.DisputeSeverity `gorm:"column:severity;type:dispute_severity_enum;not null"`
	Status          enums.DisputeStatus   `gorm:"column:status;type:dispute_status_enum;not null;default:'OPEN'"`
	ReporterID      uuid.UUID             `gorm:"column:reporter_id;type:uuid;not null"`
	ReportedID      uuid.UUID             `gorm:"column:reported_id;type:uuid;not null"`
	Subject         string                `gorm:"column:subject;type:text;not null"`
	Description     string                `gorm:"column:description;type:text;not null"`
	OrderID         *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	CardID          *uuid.UUID            `gorm:"column:card_id;type:uuid"`
	ProductID       *uuid.UUID            `gorm:"column:product_id;type:uuid"`
	ModeratorLevel  enums.ModeratorLevel  `gorm:"column:moderator_level;type:moderator_level_enum;not null"`
	AssignedTo      *uuid.UUID            `gorm:"column:assigned_to;type:uuid"`
	Resolution      *string               `gorm:"column:resolution;type:text"`
	ResolutionType  *enums.ResolutionType `gorm:"column:resolution_type;type:resolution_type_enum"`
	ResolutionNotes *string               `gorm:"column:resolution_notes;type:text"`
	ResolvedBy      *uuid.UUID            `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt      *time.Time            `gorm:"column:resolved_at"`
	ClosedAt        *time.Time            `gorm:"column:closed_at"`
	TxSignature     *string               `gorm:"column:tx_signature;type:text"`
	Version         int                   `gorm:"column:version;not null;default:0"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
