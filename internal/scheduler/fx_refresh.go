package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// RateRefresher refreshes the FX table for a date
type RateRefresher interface {
	Refresh(ctx context.Context, asOf time.Time) error
}

// FXRefreshJob pulls the latest FX table into the rate store
type FXRefreshJob struct {
	refresher RateRefresher
	timeout   time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewFXRefreshJob creates a new FXRefreshJob
func NewFXRefreshJob(refresher RateRefresher, timeout time.Duration, log zerolog.Logger) *FXRefreshJob {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FXRefreshJob{
		refresher: refresher,
		timeout:   timeout,
		now:       time.Now,
		log:       log.With().Str("job", "fx_refresh").Logger(),
	}
}

// Name returns the job name
func (j *FXRefreshJob) Name() string {
	return "fx_refresh"
}

// Run refreshes today's rates. A failure leaves the stored rates untouched, so
// lookups keep carrying the last known rate forward.
func (j *FXRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	today := j.now().UTC()
	if err := j.refresher.Refresh(ctx, today); err != nil {
		return fmt.Errorf("failed to refresh FX rates: %w", err)
	}

	j.log.Info().Str("date", today.Format("2006-01-02")).Msg("FX rates refreshed")
	return nil
}
