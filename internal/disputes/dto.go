package disputes

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	"github.com/veritasmarket/veritas-backend/pkg/pagination"
)

// CreateDisputeInput carries everything needed to file a dispute.
type CreateDisputeInput struct {
	ReporterID  uuid.UUID
	ReportedID  uuid.UUID
	Type        enums.DisputeType
	Severity    enums.DisputeSeverity
	Subject     string
	Description string
	OrderID     *uuid.UUID
	CardID      *uuid.UUID
	ProductID   *uuid.UUID
}

// AssignDisputeInput is the human-directed assignment request.
type AssignDisputeInput struct {
	DisputeID   uuid.UUID
	ModeratorID uuid.UUID
	AssignedBy  uuid.UUID
}

// AddEvidenceInput appends an evidence row to an active dispute.
type AddEvidenceInput struct {
	DisputeID   uuid.UUID
	UploaderID  uuid.UUID
	Type        enums.EvidenceType
	URL         string
	Description *string
	Metadata    json.RawMessage
}

// AddCommentInput appends a comment to a dispute.
type AddCommentInput struct {
	DisputeID uuid.UUID
	AuthorID  uuid.UUID
	Body      string
	Internal  bool
}

// EscalateInput raises a dispute's required moderator level by one step.
type EscalateInput struct {
	DisputeID   uuid.UUID
	EscalatedBy uuid.UUID
	Reason      string
}

// VoteInput records one moderator's vote on an escalated dispute.
type VoteInput struct {
	DisputeID uuid.UUID
	VoterID   uuid.UUID
	Approved  bool
	Rationale *string
}

// ResolveInput finalizes a dispute with a moderator decision.
type ResolveInput struct {
	DisputeID      uuid.UUID
	ModeratorID    uuid.UUID
	Resolution     string
	ResolutionType enums.ResolutionType
	Notes          *string
	TxSignature    *string
}

// CloseInput archives a resolved dispute.
type CloseInput struct {
	DisputeID uuid.UUID
	ClosedBy  uuid.UUID
}

// ListFilters narrows a dispute listing. Nil fields are ignored.
type ListFilters struct {
	Status     *enums.DisputeStatus
	Type       *enums.DisputeType
	Severity   *enums.DisputeSeverity
	AssignedTo *uuid.UUID
	ReporterID *uuid.UUID
	ReportedID *uuid.UUID
}

// ListResult is one page of disputes plus the unpaginated total.
type ListResult struct {
	Disputes []models.Dispute
	Total    int64
	Page     pagination.Page
}

// DisputeDetail is the full read model for a single dispute.
type DisputeDetail struct {
	Dispute  models.Dispute
	Evidence []models.DisputeEvidence
	Comments []models.DisputeComment
	Votes    []models.DisputeVote
	Actions  []models.DisputeAction
}

// StatsPeriod bounds the statistics aggregation window. Nil means all time.
type StatsPeriod struct {
	Since *time.Time
	Until *time.Time
}

// Statistics is the aggregate view over disputes created in a period. All
// figures share the created_at window, so ResolutionRate is the share of the
// period's disputes that have been resolved and never exceeds 1.
// AvgResolutionSeconds is nil when none of them resolved yet.
type Statistics struct {
	Total                int64                           `json:"total"`
	ByStatus             map[enums.DisputeStatus]int64   `json:"by_status"`
	ByType               map[enums.DisputeType]int64     `json:"by_type"`
	BySeverity           map[enums.DisputeSeverity]int64 `json:"by_severity"`
	ResolvedCount        int64                           `json:"resolved_count"`
	AvgResolutionSeconds *float64                        `json:"avg_resolution_seconds"`
	ResolutionRate       float64                         `json:"resolution_rate"`
}
