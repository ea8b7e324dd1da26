package jobs

import (
	"context"
	"log/slog"

	"github.com/kiko-app/kiko-matching/internal/application/command"
	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE SWEEP JOB
// ══════════════════════════════════════════════════════════════════════════════

// ExpireSweepJob periodically moves timed-out pending proposals to expired.
// It covers both rounds of the current and the previous ISO week, so a
// weekend outage cannot leave last week's pendings alive forever. Each sweep
// is a no-op when there is nothing to expire.
type ExpireSweepJob struct {
	expire *command.ExpireProposalsHandler
	logger *slog.Logger
}

// NewExpireSweepJob creates a new ExpireSweepJob.
func NewExpireSweepJob(expire *command.ExpireProposalsHandler, logger *slog.Logger) *ExpireSweepJob {
	return &ExpireSweepJob{
		expire: expire,
		logger: logger.With(slog.String("job", "expire_sweep")),
	}
}

// Name returns the job name.
func (j *ExpireSweepJob) Name() string {
	return "expire_sweep"
}

// Description returns a human-readable description.
func (j *ExpireSweepJob) Description() string {
	return "Expires pending proposals that outlived their TTL"
}

// Run sweeps both rounds of the current and previous week.
func (j *ExpireSweepJob) Run(ctx context.Context) error {
	now := timeutil.Now()
	weeks := []matching.WeekKey{
		matching.WeekKeyFor(now),
		matching.WeekKeyFor(now.AddDate(0, 0, -7)),
	}
	rounds := []matching.Round{matching.RoundThursday, matching.RoundFriday}

	var total int64
	for _, week := range weeks {
		for _, round := range rounds {
			result, err := j.expire.Handle(ctx, command.ExpireProposalsCommand{
				WeekKey: week,
				Round:   round,
			})
			if err != nil {
				return err
			}
			total += result.ExpiredCount
		}
	}

	if total > 0 {
		j.logger.Info("sweep expired proposals", "count", total)
	}

	return nil
}
