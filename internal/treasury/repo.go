package treasury

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/veritasmarket/veritas-backend/pkg/db/models"
)

// Repository manages persistence for reward payout instructions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payout *models.RewardPayout) error
	Exists(ctx context.Context, disputeID, moderatorID uuid.UUID) (bool, error)
	ListByModerator(ctx context.Context, moderatorID uuid.UUID) ([]models.RewardPayout, error)
	TotalOwed(ctx context.Context, moderatorID uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a treasury repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.RewardPayout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) Exists(ctx context.Context, disputeID, moderatorID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.RewardPayout{}).
		Where("dispute_id = ? AND moderator_id = ?", disputeID, moderatorID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByModerator(ctx context.Context, moderatorID uuid.UUID) ([]models.RewardPayout, error) {
	var payouts []models.RewardPayout
	if err := r.db.WithContext(ctx).
		Where("moderator_id = ?", moderatorID).
		Order("created_at DESC").
		Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

func (r *repository) TotalOwed(ctx context.Context, moderatorID uuid.UUID) (decimal.Decimal, error) {
	var payouts []models.RewardPayout
	if err := r.db.WithContext(ctx).
		Select("amount").
		Where("moderator_id = ?", moderatorID).
		Find(&payouts).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, payout := range payouts {
		total = total.Add(payout.Amount)
	}
	return total, nil
}
