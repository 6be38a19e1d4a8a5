package moderators

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/veritasmarket/veritas-backend/pkg/db"
	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
)

// Candidate is one eligible moderator together with their current workload,
// as returned by ListEligible. The repository orders candidates by workload,
// then join time, then id, so selection stays deterministic.
type Candidate struct {
	ModeratorID uuid.UUID            `gorm:"column:moderator_id"`
	Level       enums.ModeratorLevel `gorm:"column:level"`
	Workload    int                  `gorm:"column:workload"`
	JoinedAt    time.Time            `gorm:"column:joined_at"`
}

// Repository exposes moderator registry persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, moderatorID uuid.UUID) (*models.ModeratorStats, error)
	Ensure(ctx context.Context, moderatorID uuid.UUID, level enums.ModeratorLevel) (*models.ModeratorStats, error)
	ListEligible(ctx context.Context, required enums.ModeratorLevel) ([]Candidate, error)
	ListAll(ctx context.Context) ([]models.ModeratorStats, error)
	ApplyReward(ctx context.Context, moderatorID uuid.UUID, amount decimal.Decimal, points int) error
	Promote(ctx context.Context, moderatorID uuid.UUID, from, to enums.ModeratorLevel) (bool, error)
	ResetMonthlyEarnings(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a moderator registry repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, moderatorID uuid.UUID) (*models.ModeratorStats, error) {
	var stats models.ModeratorStats
	err := r.db.WithContext(ctx).
		Where("moderator_id = ?", moderatorID).
		First(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Ensure returns the registry row for the moderator, creating it lazily on
// first contact. The supplied level is only used for the initial insert; an
// existing row is returned unchanged.
func (r *repository) Ensure(ctx context.Context, moderatorID uuid.UUID, level enums.ModeratorLevel) (*models.ModeratorStats, error) {
	stats, err := r.FindByID(ctx, moderatorID)
	if err == nil {
		return stats, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if !level.IsValid() {
		level = enums.ModeratorLevelCommunity
	}
	row := models.ModeratorStats{
		ModeratorID:        moderatorID,
		Level:              level,
		TotalEarned:        decimal.Zero,
		CurrentMonthEarned: decimal.Zero,
		Active:             true,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		// lost the insert race to a concurrent first contact
		if dbpkg.IsUniqueViolation(err, "moderator_stats_pkey") {
			return r.FindByID(ctx, moderatorID)
		}
		return nil, err
	}
	return &row, nil
}

// ListEligible returns active moderators whose level satisfies the required
// level, ordered by current workload (count of assigned UNDER_REVIEW or
// ESCALATED disputes), then join time, then id.
func (r *repository) ListEligible(ctx context.Context, required enums.ModeratorLevel) ([]Candidate, error) {
	levels := eligibleLevels(required)
	if len(levels) == 0 {
		return nil, nil
	}

	var candidates []Candidate
	err := r.db.WithContext(ctx).
		Table("moderator_stats AS m").
		Select("m.moderator_id, m.level, m.joined_at, COUNT(d.id) AS workload").
		Joins("LEFT JOIN disputes d ON d.assigned_to = m.moderator_id AND d.status IN ?", []enums.DisputeStatus{
			enums.DisputeStatusUnderReview,
			enums.DisputeStatusEscalated,
		}).
		Where("m.active = ?", true).
		Where("m.level IN ?", levels).
		Group("m.moderator_id, m.level, m.joined_at").
		Order("workload ASC, m.joined_at ASC, m.moderator_id ASC").
		Scan(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.ModeratorStats, error) {
	var rows []models.ModeratorStats
	err := r.db.WithContext(ctx).
		Order("joined_at ASC, moderator_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyReward increments the resolution counters in place so concurrent
// resolutions never clobber each other's totals.
func (r *repository) ApplyReward(ctx context.Context, moderatorID uuid.UUID, amount decimal.Decimal, points int) error {
	result := r.db.WithContext(ctx).
		Model(&models.ModeratorStats{}).
		Where("moderator_id = ?", moderatorID).
		Updates(map[string]any{
			"disputes_resolved":    gorm.Expr("disputes_resolved + 1"),
			"points":               gorm.Expr("points + ?", points),
			"total_earned":         gorm.Expr("total_earned + ?", amount),
			"current_month_earned": gorm.Expr("current_month_earned + ?", amount),
			"updated_at":           time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Promote moves a moderator from one level to the next. The WHERE clause on
// the current level keeps promotion monotonic under concurrent resolutions.
func (r *repository) Promote(ctx context.Context, moderatorID uuid.UUID, from, to enums.ModeratorLevel) (bool, error) {
	if to.Rank() <= from.Rank() {
		return false, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.ModeratorStats{}).
		Where("moderator_id = ? AND level = ?", moderatorID, from).
		Updates(map[string]any{
			"level":      to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ResetMonthlyEarnings zeroes current_month_earned across the registry. Used
// by the monthly rollover job.
func (r *repository) ResetMonthlyEarnings(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ModeratorStats{}).
		Where("current_month_earned <> 0").
		Updates(map[string]any{
			"current_month_earned": decimal.Zero,
			"updated_at":           time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func eligibleLevels(required enums.ModeratorLevel) []enums.ModeratorLevel {
	var levels []enums.ModeratorLevel
	for _, candidate := range []enums.ModeratorLevel{
		enums.ModeratorLevelCommunity,
		enums.ModeratorLevelSenior,
		enums.ModeratorLevelAdmin,
	} {
		if candidate.AtLeast(required) {
			levels = append(levels, candidate)
		}
	}
	return levels
}
