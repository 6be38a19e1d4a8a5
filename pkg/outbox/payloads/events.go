package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veritasmarket/veritas-backend/pkg/enums"
)

// DisputeCreatedEvent signals that a new dispute entered the workflow.
type DisputeCreatedEvent struct {
	DisputeID  uuid.UUID             `json:"dispute_id"`
	Type       enums.DisputeType     `json:"type"`
	Severity   enums.DisputeSeverity `json:"severity"`
	ReporterID uuid.UUID             `json:"reporter_id"`
	ReportedID uuid.UUID             `json:"reported_id"`
	Level      enums.ModeratorLevel  `json:"level"`
	AssignedTo *uuid.UUID            `json:"assigned_to,omitempty"`
}

// DisputeAssignedEvent is emitted whenever a dispute gains an assignee.
type DisputeAssignedEvent struct {
	DisputeID   uuid.UUID            `json:"dispute_id"`
	ModeratorID uuid.UUID            `json:"moderator_id"`
	Level       enums.ModeratorLevel `json:"level"`
	AssignedBy  *uuid.UUID           `json:"assigned_by,omitempty"`
}

// DisputeEscalatedEvent records a level raise and the reassignment outcome.
type DisputeEscalatedEvent struct {
	DisputeID  uuid.UUID            `json:"dispute_id"`
	FromLevel  enums.ModeratorLevel `json:"from_level"`
	ToLevel    enums.ModeratorLevel `json:"to_level"`
	Reason     string               `json:"reason,omitempty"`
	AssignedTo *uuid.UUID           `json:"assigned_to,omitempty"`
}

// DisputeResolvedEvent carries the resolution outcome and reward inputs.
type DisputeResolvedEvent struct {
	DisputeID      uuid.UUID             `json:"dispute_id"`
	ReporterID     uuid.UUID             `json:"reporter_id"`
	ReportedID     uuid.UUID             `json:"reported_id"`
	ResolvedBy     uuid.UUID             `json:"resolved_by"`
	ResolutionType enums.ResolutionType  `json:"resolution_type"`
	Severity       enums.DisputeSeverity `json:"severity"`
	ResolvedAt     time.Time             `json:"resolved_at"`
}

// DisputeClosedEvent is emitted when a dispute reaches CLOSED.
type DisputeClosedEvent struct {
	DisputeID  uuid.UUID `json:"dispute_id"`
	ReporterID uuid.UUID `json:"reporter_id"`
	ClosedBy   uuid.UUID `json:"closed_by"`
	ClosedAt   time.Time `json:"closed_at"`
}

// ModeratorRewardRecordedEvent hands the computed reward to the treasury side.
type ModeratorRewardRecordedEvent struct {
	ModeratorID uuid.UUID             `json:"moderator_id"`
	DisputeID   uuid.UUID             `json:"dispute_id"`
	Amount      decimal.Decimal       `json:"amount"`
	Points      int                   `json:"points"`
	Severity    enums.DisputeSeverity `json:"severity"`
	Level       enums.ModeratorLevel  `json:"level"`
	FastBonus   bool                  `json:"fast_bonus"`
}

// ModeratorLevelChangedEvent reports a promotion.
type ModeratorLevelChangedEvent struct {
	ModeratorID uuid.UUID            `json:"moderator_id"`
	FromLevel   enums.ModeratorLevel `json:"from_level"`
	ToLevel     enums.ModeratorLevel `json:"to_level"`
}

// NotificationRequestedEvent tells downstream systems to alert a recipient.
type NotificationRequestedEvent struct {
	RecipientID uuid.UUID              `json:"recipient_id"`
	DisputeID   *uuid.UUID             `json:"dispute_id,omitempty"`
	Type        enums.NotificationType `json:"type"`
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
}
