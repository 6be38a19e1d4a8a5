package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	"github.com/veritasmarket/veritas-backend/pkg/pagination"
)

// Repository is the persistence surface of the dispute workflow. Status and
// assignment writes go through conditional updates so racing operations on the
// same dispute serialize instead of clobbering each other.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	FindActiveDuplicate(ctx context.Context, input CreateDisputeInput) (*models.Dispute, error)
	List(ctx context.Context, filters ListFilters, page pagination.Page) ([]models.Dispute, int64, error)

	// TryAssign sets the assignee only while the dispute is still unassigned
	// and in the expected status. Reports whether the write landed.
	TryAssign(ctx context.Context, disputeID, moderatorID uuid.UUID, fromStatus, toStatus enums.DisputeStatus) (bool, error)

	// UpdateChecked applies updates guarded by the optimistic version and bumps
	// it. Reports whether the row matched.
	UpdateChecked(ctx context.Context, disputeID uuid.UUID, version int, updates map[string]any) (bool, error)

	CreateEvidence(ctx context.Context, evidence *models.DisputeEvidence) (*models.DisputeEvidence, error)
	ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvidence, error)

	CreateComment(ctx context.Context, comment *models.DisputeComment) (*models.DisputeComment, error)
	ListComments(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeComment, error)

	CreateVote(ctx context.Context, vote *models.DisputeVote) (*models.DisputeVote, error)
	ListVotes(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeVote, error)

	AppendAction(ctx context.Context, action *models.DisputeAction) error
	ListActions(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeAction, error)

	CountByStatus(ctx context.Context, period StatsPeriod) (map[enums.DisputeStatus]int64, error)
	CountByType(ctx context.Context, period StatsPeriod) (map[enums.DisputeType]int64, error)
	CountBySeverity(ctx context.Context, period StatsPeriod) (map[enums.DisputeSeverity]int64, error)
	ResolutionDurations(ctx context.Context, period StatsPeriod) ([]float64, error)
}
