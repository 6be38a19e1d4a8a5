package disputes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	"github.com/veritasmarket/veritas-backend/pkg/pagination"
)

var activeStatuses = []enums.DisputeStatus{
	enums.DisputeStatusOpen,
	enums.DisputeStatusUnderReview,
	enums.DisputeStatusEscalated,
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a dispute repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error) {
	if err := r.db.WithContext(ctx).Create(dispute).Error; err != nil {
		return nil, err
	}
	return dispute, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&dispute).Error
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

// FindActiveDuplicate looks for an existing active dispute between the same
// parties of the same type, narrowed further by whichever entity links the
// new filing carries.
func (r *repository) FindActiveDuplicate(ctx context.Context, input CreateDisputeInput) (*models.Dispute, error) {
	query := r.db.WithContext(ctx).
		Where("reporter_id = ?", input.ReporterID).
		Where("reported_id = ?", input.ReportedID).
		Where("type = ?", input.Type).
		Where("status IN ?", activeStatuses)
	if input.OrderID != nil {
		query = query.Where("order_id = ?", *input.OrderID)
	}
	if input.CardID != nil {
		query = query.Where("card_id = ?", *input.CardID)
	}
	if input.ProductID != nil {
		query = query.Where("product_id = ?", *input.ProductID)
	}

	var dispute models.Dispute
	if err := query.First(&dispute).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) List(ctx context.Context, filters ListFilters, page pagination.Page) ([]models.Dispute, int64, error) {
	page = page.Normalize()
	base := r.applyFilters(r.db.WithContext(ctx).Model(&models.Dispute{}), filters)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var disputes []models.Dispute
	err := base.
		Order("created_at DESC, id DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&disputes).Error
	if err != nil {
		return nil, 0, err
	}
	return disputes, total, nil
}

func (r *repository) applyFilters(query *gorm.DB, filters ListFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Severity != nil {
		query = query.Where("severity = ?", *filters.Severity)
	}
	if filters.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filters.AssignedTo)
	}
	if filters.ReporterID != nil {
		query = query.Where("reporter_id = ?", *filters.ReporterID)
	}
	if filters.ReportedID != nil {
		query = query.Where("reported_id = ?", *filters.ReportedID)
	}
	return query
}

func (r *repository) TryAssign(ctx context.Context, disputeID, moderatorID uuid.UUID, fromStatus, toStatus enums.DisputeStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ? AND status = ? AND assigned_to IS NULL", disputeID, fromStatus).
		Updates(map[string]any{
			"assigned_to": moderatorID,
			"status":      toStatus,
			"version":     gorm.Expr("version + 1"),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) UpdateChecked(ctx context.Context, disputeID uuid.UUID, version int, updates map[string]any) (bool, error) {
	merged := map[string]any{
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	}
	for column, value := range updates {
		merged[column] = value
	}
	result := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ? AND version = ?", disputeID, version).
		Updates(merged)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CreateEvidence(ctx context.Context, evidence *models.DisputeEvidence) (*models.DisputeEvidence, error) {
	if err := r.db.WithContext(ctx).Create(evidence).Error; err != nil {
		return nil, err
	}
	return evidence, nil
}

func (r *repository) ListEvidence(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeEvidence, error) {
	var rows []models.DisputeEvidence
	err := r.db.WithContext(ctx).
		Where("dispute_id = ?", disputeID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateComment(ctx context.Context, comment *models.DisputeComment) (*models.DisputeComment, error) {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (r *repository) ListComments(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeComment, error) {
	var rows []models.DisputeComment
	err := r.db.WithContext(ctx).
		Where("dispute_id = ?", disputeID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateVote(ctx context.Context, vote *models.DisputeVote) (*models.DisputeVote, error) {
	if err := r.db.WithContext(ctx).Create(vote).Error; err != nil {
		return nil, err
	}
	return vote, nil
}

func (r *repository) ListVotes(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeVote, error) {
	var rows []models.DisputeVote
	err := r.db.WithContext(ctx).
		Where("dispute_id = ?", disputeID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) AppendAction(ctx context.Context, action *models.DisputeAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *repository) ListActions(ctx context.Context, disputeID uuid.UUID) ([]models.DisputeAction, error) {
	var rows []models.DisputeAction
	err := r.db.WithContext(ctx).
		Where("dispute_id = ?", disputeID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountByStatus(ctx context.Context, period StatsPeriod) (map[enums.DisputeStatus]int64, error) {
	raw, err := r.groupCount(ctx, "status", period)
	if err != nil {
		return nil, err
	}
	out := make(map[enums.DisputeStatus]int64, len(raw))
	for key, count := range raw {
		out[enums.DisputeStatus(key)] = count
	}
	return out, nil
}

func (r *repository) CountByType(ctx context.Context, period StatsPeriod) (map[enums.DisputeType]int64, error) {
	raw, err := r.groupCount(ctx, "type", period)
	if err != nil {
		return nil, err
	}
	out := make(map[enums.DisputeType]int64, len(raw))
	for key, count := range raw {
		out[enums.DisputeType(key)] = count
	}
	return out, nil
}

func (r *repository) CountBySeverity(ctx context.Context, period StatsPeriod) (map[enums.DisputeSeverity]int64, error) {
	raw, err := r.groupCount(ctx, "severity", period)
	if err != nil {
		return nil, err
	}
	out := make(map[enums.DisputeSeverity]int64, len(raw))
	for key, count := range raw {
		out[enums.DisputeSeverity(key)] = count
	}
	return out, nil
}

type groupCountRow struct {
	Key   string `gorm:"column:key"`
	Count int64  `gorm:"column:count"`
}

func (r *repository) groupCount(ctx context.Context, column string, period StatsPeriod) (map[string]int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Select(column + " AS key, COUNT(*) AS count").
		Group(column)
	query = applyPeriod(query, "created_at", period)

	var rows []groupCountRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out, nil
}

// ResolutionDurations returns resolved-at minus created-at, in seconds, for
// every dispute created in the period that has been resolved. Windowing on
// created_at keeps the resolved count on the same basis as the totals, so
// the derived resolution rate stays within [0, 1]. Averaging happens in the
// service so the query stays portable across dialects.
func (r *repository) ResolutionDurations(ctx context.Context, period StatsPeriod) ([]float64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Select("created_at, resolved_at").
		Where("resolved_at IS NOT NULL")
	query = applyPeriod(query, "created_at", period)

	var rows []struct {
		CreatedAt  time.Time `gorm:"column:created_at"`
		ResolvedAt time.Time `gorm:"column:resolved_at"`
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	durations := make([]float64, 0, len(rows))
	for _, row := range rows {
		durations = append(durations, row.ResolvedAt.Sub(row.CreatedAt).Seconds())
	}
	return durations, nil
}

func applyPeriod(query *gorm.DB, column string, period StatsPeriod) *gorm.DB {
	if period.Since != nil {
		query = query.Where(column+" >= ?", *period.Since)
	}
	if period.Until != nil {
		query = query.Where(column+" < ?", *period.Until)
	}
	return query
}
