package moderators

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	pkgerrors "github.com/veritasmarket/veritas-backend/pkg/errors"
)

// Service exposes the moderator registry to controllers and to the dispute
// workflow. Registry rows are created lazily with a default COMMUNITY level;
// how a moderator earns a higher initial level is an upstream concern.
type Service interface {
	EnsureModerator(ctx context.Context, moderatorID uuid.UUID, level enums.ModeratorLevel) (*models.ModeratorStats, error)
	GetStats(ctx context.Context, moderatorID uuid.UUID) (*models.ModeratorStats, error)
	ListModerators(ctx context.Context) ([]models.ModeratorStats, error)
}

type service struct {
	repo Repository
}

// NewService builds a moderator registry service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("moderators repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) EnsureModerator(ctx context.Context, moderatorID uuid.UUID, level enums.ModeratorLevel) (*models.ModeratorStats, error) {
	if moderatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "moderator id required")
	}
	if level == "" {
		level = enums.ModeratorLevelCommunity
	}
	if !level.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid moderator level")
	}
	stats, err := s.repo.Ensure(ctx, moderatorID, level)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure moderator")
	}
	return stats, nil
}

func (s *service) GetStats(ctx context.Context, moderatorID uuid.UUID) (*models.ModeratorStats, error) {
	if moderatorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "moderator id required")
	}
	stats, err := s.repo.FindByID(ctx, moderatorID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "moderator not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load moderator stats")
	}
	return stats, nil
}

func (s *service) ListModerators(ctx context.Context) ([]models.ModeratorStats, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list moderators")
	}
	return rows, nil
}
