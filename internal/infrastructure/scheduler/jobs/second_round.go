package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kiko-app/kiko-matching/internal/application/command"
	"github.com/kiko-app/kiko-matching/internal/application/query"
	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
	"github.com/kiko-app/kiko-matching/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// FRIDAY DROP JOB
// ══════════════════════════════════════════════════════════════════════════════

// FridayDropJob runs the second-chance round. Before generating it expires
// stale Thursday pendings, so a user who never answered does not hold both a
// live first-round proposal and a second-chance one. Only users whose
// Thursday proposal is accepted without a mutual match are eligible.
type FridayDropJob struct {
	userRepo    user.Repository
	matchRepo   matching.Repository
	generate    *command.GenerateWeeklyMatchHandler
	expire      *command.ExpireProposalsHandler
	eligibility *query.SecondChanceEligibilityHandler
	lock        RunLock
	publisher   shared.EventPublisher
	logger      *slog.Logger
}

// NewFridayDropJob creates a new FridayDropJob.
func NewFridayDropJob(
	userRepo user.Repository,
	matchRepo matching.Repository,
	generate *command.GenerateWeeklyMatchHandler,
	expire *command.ExpireProposalsHandler,
	eligibility *query.SecondChanceEligibilityHandler,
	lock RunLock,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *FridayDropJob {
	return &FridayDropJob{
		userRepo:    userRepo,
		matchRepo:   matchRepo,
		generate:    generate,
		expire:      expire,
		eligibility: eligibility,
		lock:        lock,
		publisher:   publisher,
		logger:      logger.With(slog.String("job", "friday_drop")),
	}
}

// Name returns the job name.
func (j *FridayDropJob) Name() string {
	return "friday_drop"
}

// Description returns a human-readable description.
func (j *FridayDropJob) Description() string {
	return "Generates second-chance proposals for users whose Thursday accept went unanswered"
}

// Run executes the Friday drop for the current ISO week.
func (j *FridayDropJob) Run(ctx context.Context) error {
	week := matching.CurrentWeekKey()

	return runRound(ctx, j.logger, j.lock, j.publisher, week, matching.RoundFriday, func(ctx context.Context) (roundStats, error) {
		var stats roundStats

		// Sweep Thursday pendings first. Uses the policy TTL.
		if _, err := j.expire.Handle(ctx, command.ExpireProposalsCommand{
			WeekKey: week,
			Round:   matching.RoundThursday,
		}); err != nil {
			return stats, fmt.Errorf("failed to expire first-round pendings: %w", err)
		}

		// Cheap pre-filter: only users sitting on an accepted Thursday
		// proposal can possibly be eligible.
		candidates, err := j.matchRepo.Proposals().AcceptedProposerIDs(ctx, week, matching.RoundThursday)
		if err != nil {
			return stats, fmt.Errorf("failed to list accepted proposers: %w", err)
		}

		eligible := make([]string, 0, len(candidates))
		for _, id := range candidates {
			dto, err := j.eligibility.Handle(ctx, query.SecondChanceEligibilityQuery{
				UserID:  string(id),
				WeekKey: week,
			})
			if err != nil {
				stats.failed++
				j.logger.Error("eligibility check failed for user",
					"user_id", string(id),
					"error", err,
				)
				continue
			}
			if dto.Eligible {
				eligible = append(eligible, string(id))
			}
		}

		j.logger.Info("second-chance eligibility resolved",
			"week_key", week.String(),
			"accepted", len(candidates),
			"eligible", len(eligible),
		)

		genStats, err := generateForAll(ctx, j.userRepo, j.generate, week, matching.RoundFriday, eligible, j.logger)
		genStats.failed += stats.failed
		return genStats, err
	})
}
