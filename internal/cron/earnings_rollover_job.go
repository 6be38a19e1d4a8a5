package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/veritasmarket/veritas-backend/pkg/logger"
)

type earningsResetter interface {
	ResetMonthlyEarnings(ctx context.Context) (int64, error)
}

// EarningsRolloverJobParams configure the monthly earnings rollover.
type EarningsRolloverJobParams struct {
	Logger          *logger.Logger
	Moderators      earningsResetter
	RolloverHourUTC int
}

// NewEarningsRolloverJob builds the job that zeroes current_month_earned on
// the first day of each calendar month. The reset itself is idempotent, so a
// worker restart on rollover day cannot corrupt the counters.
func NewEarningsRolloverJob(params EarningsRolloverJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Moderators == nil {
		return nil, fmt.Errorf("moderator registry required")
	}
	if params.RolloverHourUTC < 0 || params.RolloverHourUTC > 23 {
		return nil, fmt.Errorf("rollover hour must be between 0 and 23")
	}
	return &earningsRolloverJob{
		logg:       params.Logger,
		moderators: params.Moderators,
		hour:       params.RolloverHourUTC,
		now:        time.Now,
	}, nil
}

type earningsRolloverJob struct {
	logg       *logger.Logger
	moderators earningsResetter
	hour       int
	now        func() time.Time

	lastRolled string
}

func (j *earningsRolloverJob) Name() string { return "earnings-rollover" }

func (j *earningsRolloverJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	if now.Day() != 1 || now.Hour() < j.hour {
		return nil
	}
	month := now.Format("2006-01")
	if j.lastRolled == month {
		return nil
	}

	reset, err := j.moderators.ResetMonthlyEarnings(ctx)
	if err != nil {
		return fmt.Errorf("reset monthly earnings: %w", err)
	}
	j.lastRolled = month

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"month":      month,
		"rows_reset": reset,
	})
	j.logg.Info(logCtx, "monthly earnings rollover complete")
	return nil
}
