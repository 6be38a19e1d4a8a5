package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veritasmarket/veritas-backend/internal/disputes"
	"github.com/veritasmarket/veritas-backend/internal/moderators"
	"github.com/veritasmarket/veritas-backend/pkg/db/models"
	"github.com/veritasmarket/veritas-backend/pkg/enums"
	"github.com/veritasmarket/veritas-backend/pkg/logger"
	"github.com/veritasmarket/veritas-backend/pkg/pagination"
)

const (
	overloadFactor          = 1.5
	underloadFactor         = 0.5
	defaultRebalanceMinLoad = 3
	rebalanceBatchSize      = pagination.MaxLimit
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type rebalanceDisputeReader interface {
	List(ctx context.Context, filters disputes.ListFilters, page pagination.Page) ([]models.Dispute, int64, error)
}

type rebalanceDisputeWriter interface {
	UpdateChecked(ctx context.Context, disputeID uuid.UUID, version int, updates map[string]any) (bool, error)
	AppendAction(ctx context.Context, action *models.DisputeAction) error
}

type rebalanceRepoFactory func(tx *gorm.DB) rebalanceDisputeWriter

func defaultRebalanceRepo(tx *gorm.DB) rebalanceDisputeWriter {
	return disputes.NewRepository(tx)
}

type moderatorPool interface {
	ListEligible(ctx context.Context, required enums.ModeratorLevel) ([]moderators.Candidate, error)
}

// WorkloadRebalanceJobParams configure the workload rebalance job.
type WorkloadRebalanceJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Disputes    rebalanceDisputeReader
	Moderators  moderatorPool
	RepoFactory rebalanceRepoFactory
	MinLoad     int
}

// NewWorkloadRebalanceJob builds the job that spreads review load evenly.
// Within each moderator level, moderators carrying more than 1.5x the level's
// mean active load hand their oldest UNDER_REVIEW disputes to moderators
// below half of it.
func NewWorkloadRebalanceJob(params WorkloadRebalanceJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Disputes == nil {
		return nil, fmt.Errorf("disputes reader required")
	}
	if params.Moderators == nil {
		return nil, fmt.Errorf("moderator pool required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultRebalanceRepo
	}
	minLoad := params.MinLoad
	if minLoad <= 0 {
		minLoad = defaultRebalanceMinLoad
	}
	return &workloadRebalanceJob{
		logg:        params.Logger,
		db:          params.DB,
		disputes:    params.Disputes,
		moderators:  params.Moderators,
		repoFactory: repoFactory,
		minLoad:     minLoad,
	}, nil
}

type workloadRebalanceJob struct {
	logg        *logger.Logger
	db          txRunner
	disputes    rebalanceDisputeReader
	moderators  moderatorPool
	repoFactory rebalanceRepoFactory
	minLoad     int
}

func (j *workloadRebalanceJob) Name() string { return "workload-rebalance" }

func (j *workloadRebalanceJob) Run(ctx context.Context) error {
	pool, err := j.moderators.ListEligible(ctx, enums.ModeratorLevelCommunity)
	if err != nil {
		return fmt.Errorf("list moderators: %w", err)
	}

	byLevel := map[enums.ModeratorLevel][]moderators.Candidate{}
	for _, candidate := range pool {
		byLevel[candidate.Level] = append(byLevel[candidate.Level], candidate)
	}

	moved := 0
	for level, candidates := range byLevel {
		count, err := j.rebalanceLevel(ctx, level, candidates)
		if err != nil {
			return err
		}
		moved += count
	}

	logCtx := j.logg.WithField(ctx, "moved", moved)
	j.logg.Info(logCtx, "workload rebalance complete")
	return nil
}

func (j *workloadRebalanceJob) rebalanceLevel(ctx context.Context, level enums.ModeratorLevel, candidates []moderators.Candidate) (int, error) {
	if len(candidates) < 2 {
		return 0, nil
	}

	total := 0
	for _, candidate := range candidates {
		total += candidate.Workload
	}
	mean := float64(total) / float64(len(candidates))

	var donors, receivers []*moderators.Candidate
	for i := range candidates {
		candidate := &candidates[i]
		switch {
		case candidate.Workload >= j.minLoad && float64(candidate.Workload) > overloadFactor*mean:
			donors = append(donors, candidate)
		case float64(candidate.Workload) < underloadFactor*mean:
			receivers = append(receivers, candidate)
		}
	}
	if len(donors) == 0 || len(receivers) == 0 {
		return 0, nil
	}
	sort.Slice(donors, func(a, b int) bool { return donors[a].Workload > donors[b].Workload })

	moved := 0
	for _, donor := range donors {
		count, err := j.drainDonor(ctx, level, mean, donor, receivers)
		if err != nil {
			return moved, err
		}
		moved += count
	}
	return moved, nil
}

func (j *workloadRebalanceJob) drainDonor(ctx context.Context, level enums.ModeratorLevel, mean float64, donor *moderators.Candidate, receivers []*moderators.Candidate) (int, error) {
	excess := donor.Workload - int(math.Ceil(mean))
	if excess <= 0 {
		return 0, nil
	}

	status := enums.DisputeStatusUnderReview
	donorID := donor.ModeratorID
	backlog, _, err := j.disputes.List(ctx, disputes.ListFilters{
		Status:     &status,
		AssignedTo: &donorID,
	}, pagination.Page{Limit: rebalanceBatchSize})
	if err != nil {
		return 0, fmt.Errorf("list donor backlog: %w", err)
	}

	moved := 0
	// List returns newest first; walk backwards to move the oldest disputes.
	for i := len(backlog) - 1; i >= 0 && excess > 0; i-- {
		target := pickReceiver(receivers, mean)
		if target == nil {
			break
		}
		ok, err := j.reassign(ctx, backlog[i], donor, target, level)
		if err != nil {
			return moved, err
		}
		if !ok {
			continue
		}
		donor.Workload--
		target.Workload++
		excess--
		moved++
	}
	return moved, nil
}

func pickReceiver(receivers []*moderators.Candidate, mean float64) *moderators.Candidate {
	var best *moderators.Candidate
	for _, receiver := range receivers {
		if float64(receiver.Workload) >= underloadFactor*mean {
			continue
		}
		if best == nil || receiver.Workload < best.Workload {
			best = receiver
		}
	}
	return best
}

func (j *workloadRebalanceJob) reassign(ctx context.Context, dispute models.Dispute, donor, target *moderators.Candidate, level enums.ModeratorLevel) (bool, error) {
	var reassigned bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		ok, err := repo.UpdateChecked(ctx, dispute.ID, dispute.Version, map[string]any{
			"assigned_to": target.ModeratorID,
		})
		if err != nil {
			return fmt.Errorf("reassign dispute: %w", err)
		}
		if !ok {
			// The dispute moved on since the read; leave it alone.
			return nil
		}
		reassigned = true
		detail, err := json.Marshal(map[string]any{
			"moderator_id":    target.ModeratorID,
			"level":           level,
			"rebalanced_from": donor.ModeratorID,
		})
		if err != nil {
			return fmt.Errorf("encode action detail: %w", err)
		}
		return repo.AppendAction(ctx, &models.DisputeAction{
			DisputeID: dispute.ID,
			ActorID:   target.ModeratorID,
			Type:      enums.ActionAssigned,
			Detail:    detail,
		})
	})
	if err != nil {
		return false, err
	}
	return reassigned, nil
}
