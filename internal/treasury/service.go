package treasury

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veritasmarket/veritas-backend/pkg/db"
	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
)

const payoutUniqueConstraint = "ux_reward_payouts_dispute_moderator"

// Service defines operations that record reward payout instructions.
type Service interface {
	RecordPayout(ctx context.Context, input RecordPayoutInput) (*models.RewardPayout, error)
	HasPayout(ctx context.Context, disputeID, moderatorID uuid.UUID) (bool, error)
	ListPayouts(ctx context.Context, moderatorID uuid.UUID) ([]models.RewardPayout, error)
	TotalOwed(ctx context.Context, moderatorID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo Repository
}

// RecordPayoutInput captures the immutable data a payout instruction requires.
type RecordPayoutInput struct {
	ModeratorID uuid.UUID             `json:"moderator_id"`
	DisputeID   uuid.UUID             `json:"dispute_id"`
	Amount      decimal.Decimal       `json:"amount"`
	Points      int                   `json:"points"`
	Severity    enums.DisputeSeverity `json:"severity"`
	Level       enums.ModeratorLevel  `json:"level"`
	FastBonus   bool                  `json:"fast_bonus"`
}

// NewService wires a treasury service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("treasury repository required")
	}
	return &service{repo: repo}, nil
}

// RecordPayout appends a payout instruction. Replays of the same
// (dispute, moderator) pair return the no-op without error.
func (s *service) RecordPayout(ctx context.Context, input RecordPayoutInput) (*models.RewardPayout, error) {
	if input.ModeratorID == uuid.Nil {
		return nil, fmt.Errorf("moderator id is required")
	}
	if input.DisputeID == uuid.Nil {
		return nil, fmt.Errorf("dispute id is required")
	}
	if input.Amount.IsNegative() {
		return nil, fmt.Errorf("payout amount must not be negative")
	}
	if !input.Severity.IsValid() {
		return nil, fmt.Errorf("invalid dispute severity %q", input.Severity)
	}
	if !input.Level.IsValid() {
		return nil, fmt.Errorf("invalid moderator level %q", input.Level)
	}

	payout := &models.RewardPayout{
		ModeratorID: input.ModeratorID,
		DisputeID:   input.DisputeID,
		Amount:      input.Amount,
		Points:      input.Points,
		Severity:    input.Severity,
		Level:       input.Level,
		FastBonus:   input.FastBonus,
	}

	if err := s.repo.Create(ctx, payout); err != nil {
		if db.IsUniqueViolation(err, payoutUniqueConstraint) {
			return nil, nil
		}
		return nil, err
	}
	return payout, nil
}

func (s *service) HasPayout(ctx context.Context, disputeID, moderatorID uuid.UUID) (bool, error) {
	if disputeID == uuid.Nil {
		return false, fmt.Errorf("dispute id is required")
	}
	if moderatorID == uuid.Nil {
		return false, fmt.Errorf("moderator id is required")
	}
	return s.repo.Exists(ctx, disputeID, moderatorID)
}

func (s *service) ListPayouts(ctx context.Context, moderatorID uuid.UUID) ([]models.RewardPayout, error) {
	if moderatorID == uuid.Nil {
		return nil, fmt.Errorf("moderator id is required")
	}
	return s.repo.ListByModerator(ctx, moderatorID)
}

func (s *service) TotalOwed(ctx context.Context, moderatorID uuid.UUID) (decimal.Decimal, error) {
	if moderatorID == uuid.Nil {
		return decimal.Zero, fmt.Errorf("moderator id is required")
	}
	return s.repo.TotalOwed(ctx, moderatorID)
}
