// Package jobs contains the scheduled jobs of the Kiko matching engine:
// the Thursday drop, the Friday second-chance drop, and the expiration sweep.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiko-app/kiko-matching/internal/application/command"
	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
	"github.com/kiko-app/kiko-matching/internal/domain/user"
)

// RunLock guards a round run across worker instances. Generation itself is
// idempotent, so the lock only avoids wasted work, never correctness.
type RunLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// THURSDAY DROP JOB
// ══════════════════════════════════════════════════════════════════════════════

// ThursdayDropJob generates the first-round proposal for every active user.
// One user's failure never aborts the run: the loop continues and the job
// reports per-outcome counters at the end.
type ThursdayDropJob struct {
	userRepo  user.Repository
	generate  *command.GenerateWeeklyMatchHandler
	lock      RunLock
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewThursdayDropJob creates a new ThursdayDropJob. The lock may be nil when
// running a single worker instance.
func NewThursdayDropJob(
	userRepo user.Repository,
	generate *command.GenerateWeeklyMatchHandler,
	lock RunLock,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *ThursdayDropJob {
	return &ThursdayDropJob{
		userRepo:  userRepo,
		generate:  generate,
		lock:      lock,
		publisher: publisher,
		logger:    logger.With(slog.String("job", "thursday_drop")),
	}
}

// Name returns the job name.
func (j *ThursdayDropJob) Name() string {
	return "thursday_drop"
}

// Description returns a human-readable description.
func (j *ThursdayDropJob) Description() string {
	return "Generates the first-round match proposal for every active user"
}

// Run executes the Thursday drop for the current ISO week.
func (j *ThursdayDropJob) Run(ctx context.Context) error {
	week := matching.CurrentWeekKey()
	return runRound(ctx, j.logger, j.lock, j.publisher, week, matching.RoundThursday, func(ctx context.Context) (roundStats, error) {
		return generateForAll(ctx, j.userRepo, j.generate, week, matching.RoundThursday, nil, j.logger)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Shared round plumbing
// ─────────────────────────────────────────────────────────────────────────────

type roundStats struct {
	generated int
	empty     int
	skipped   int
	failed    int
}

// runRound wraps a round body with lock acquisition, summary logging and a
// round-completed event carrying the outcome counters.
func runRound(
	ctx context.Context,
	logger *slog.Logger,
	lock RunLock,
	publisher shared.EventPublisher,
	week matching.WeekKey,
	round matching.Round,
	body func(ctx context.Context) (roundStats, error),
) error {
	roundKey := string(matching.MakeRoundKey(week, round))

	if lock != nil {
		acquired, err := lock.Acquire(ctx, roundKey, 0)
		if err != nil {
			return fmt.Errorf("failed to acquire round lock %s: %w", roundKey, err)
		}
		if !acquired {
			logger.Info("round already running on another instance", "round_key", roundKey)
			return nil
		}
		defer func() {
			if err := lock.Release(ctx, roundKey); err != nil {
				logger.Warn("failed to release round lock", "round_key", roundKey, "error", err)
			}
		}()
	}

	start := time.Now()
	stats, err := body(ctx)
	if err != nil {
		return err
	}

	logger.Info("round completed",
		"round_key", roundKey,
		"generated", stats.generated,
		"empty", stats.empty,
		"skipped", stats.skipped,
		"failed", stats.failed,
		"duration", time.Since(start).String(),
	)

	if publisher != nil {
		event := shared.NewRoundCompletedEvent(week.String(), round.String(), stats.generated, stats.empty, stats.failed)
		if err := publisher.Publish(event); err != nil {
			logger.Warn("failed to publish round completed event", "round_key", roundKey, "error", err)
		}
	}

	return nil
}

// generateForAll runs generation for each user in ids (or every active user
// when ids is nil), tallying outcomes. Individual failures are logged and
// counted, not propagated.
func generateForAll(
	ctx context.Context,
	userRepo user.Repository,
	generate *command.GenerateWeeklyMatchHandler,
	week matching.WeekKey,
	round matching.Round,
	ids []string,
	logger *slog.Logger,
) (roundStats, error) {
	var stats roundStats

	if ids == nil {
		users, err := userRepo.ListActive(ctx)
		if err != nil {
			return stats, fmt.Errorf("failed to list active users: %w", err)
		}
		ids = make([]string, 0, len(users))
		for _, u := range users {
			ids = append(ids, string(u.ID))
		}
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		result, err := generate.Handle(ctx, command.GenerateWeeklyMatchCommand{
			UserID:  id,
			WeekKey: week,
			Round:   round,
		})
		if err != nil {
			stats.failed++
			logger.Error("generation failed for user",
				"user_id", id,
				"round", round.String(),
				"error", err,
			)
			continue
		}

		switch {
		case result.AlreadyExisted:
			stats.skipped++
		case result.Proposal != nil:
			stats.generated++
		default:
			stats.empty++
		}
	}

	return stats, nil
}
