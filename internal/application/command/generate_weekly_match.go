// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/profile"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
	"github.com/kiko-app/kiko-matching/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GENERATE WEEKLY MATCH COMMAND
// Generates the weekly proposal for a single user: candidate pool, cooldown,
// scoring, ranking, persistence. This is the idempotency anchor of the whole
// engine: any number of calls for the same (user, round, week) produce
// exactly one batch and at most one proposal, and every call after the first
// returns the already-existing result without side effects.
// ══════════════════════════════════════════════════════════════════════════════

// IDGenerator defines the interface for generating entity IDs.
type IDGenerator interface {
	// GenerateID returns a new unique identifier.
	GenerateID() string
}

// GenerateWeeklyMatchCommand contains the data to generate one user's match.
type GenerateWeeklyMatchCommand struct {
	// UserID is the user to generate a proposal for.
	UserID string

	// WeekKey is the ISO week of the drop.
	WeekKey matching.WeekKey

	// Round is the drop round (thu/fri).
	Round matching.Round

	// Threshold overrides the minimum score (0 = use policy default).
	Threshold int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c GenerateWeeklyMatchCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("generate_weekly_match: user_id is required")
	}
	if !c.WeekKey.IsValid() {
		return fmt.Errorf("generate_weekly_match: invalid week key: %s", c.WeekKey)
	}
	if !c.Round.IsValid() {
		return fmt.Errorf("generate_weekly_match: invalid round: %s", c.Round)
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return errors.New("generate_weekly_match: threshold must be between 0 and 100")
	}
	return nil
}

// GenerateWeeklyMatchResult contains the outcome of a generation call.
type GenerateWeeklyMatchResult struct {
	// Proposal is the created (or previously existing) proposal.
	// Nil when no candidate passed the threshold or the user has no vector.
	Proposal *matching.Proposal

	// AlreadyExisted is true when the batch was created by an earlier call
	// and this invocation short-circuited.
	AlreadyExisted bool

	// CandidatesConsidered is the pool size after hard filters and cooldown
	// (zero on the short-circuit path).
	CandidatesConsidered int
}

// GenerateWeeklyMatchHandler handles the GenerateWeeklyMatchCommand.
type GenerateWeeklyMatchHandler struct {
	userRepo       user.Repository
	blockRepo      user.BlockRepository
	vectorProvider profile.VectorProvider
	matchRepo      matching.Repository
	idGenerator    IDGenerator
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	policy matching.MatchPolicy
}

// NewGenerateWeeklyMatchHandler creates a new GenerateWeeklyMatchHandler.
func NewGenerateWeeklyMatchHandler(
	userRepo user.Repository,
	blockRepo user.BlockRepository,
	vectorProvider profile.VectorProvider,
	matchRepo matching.Repository,
	idGenerator IDGenerator,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	policy matching.MatchPolicy,
) *GenerateWeeklyMatchHandler {
	if policy.Threshold == 0 {
		policy = matching.DefaultMatchPolicy()
	}

	return &GenerateWeeklyMatchHandler{
		userRepo:       userRepo,
		blockRepo:      blockRepo,
		vectorProvider: vectorProvider,
		matchRepo:      matchRepo,
		idGenerator:    idGenerator,
		eventPublisher: eventPublisher,
		logger:         logger,
		policy:         policy,
	}
}

// Handle executes the generation for one (user, round, week) unit.
func (h *GenerateWeeklyMatchHandler) Handle(ctx context.Context, cmd GenerateWeeklyMatchCommand) (*GenerateWeeklyMatchResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("matching", "Generate", shared.ErrValidation, "validation failed", err)
	}

	userID := shared.UserID(cmd.UserID)
	roundKey := matching.MakeRoundKey(cmd.WeekKey, cmd.Round)

	policy := h.policy
	if cmd.Threshold > 0 {
		policy.Threshold = cmd.Threshold
	}

	// Step 1: fast path. An existing batch means an earlier call already did
	// the work; return its proposal (or nil if it never produced one).
	// This check is an optimization, not the safety mechanism - the
	// in-transaction re-check below is what makes concurrent calls safe.
	existing, err := h.matchRepo.Batches().GetByUserAndRoundKey(ctx, userID, roundKey)
	if err != nil && !shared.IsNotFound(err) {
		return nil, shared.WrapError("matching", "Generate", shared.ErrInternal, "batch lookup failed", err)
	}
	if existing != nil {
		proposal, perr := h.matchRepo.Proposals().GetByProposerAndRound(ctx, userID, cmd.WeekKey, cmd.Round)
		if perr != nil && !shared.IsNotFound(perr) {
			return nil, shared.WrapError("matching", "Generate", shared.ErrInternal, "proposal lookup failed", perr)
		}
		return &GenerateWeeklyMatchResult{Proposal: proposal, AlreadyExisted: true}, nil
	}

	// Step 2: no vector, no match. No batch either - the user may still
	// complete their questionnaire before the round is re-triggered.
	vector, err := h.vectorProvider.GetVector(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return &GenerateWeeklyMatchResult{}, nil
		}
		return nil, shared.WrapError("matching", "Generate", shared.ErrInternal, "vector load failed", err)
	}

	requester, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, shared.WrapError("matching", "Generate", shared.ErrInternal, "requester load failed", err)
	}

	// Steps 3-4: pool, cooldown, scoring, ranking.
	best, poolSize, err := h.findBestCandidate(ctx, requester, vector, policy)
	if err != nil {
		return nil, err
	}

	batch, err := matching.NewBatch(matching.NewBatchParams{
		ID:      h.idGenerator.GenerateID(),
		UserID:  userID,
		WeekKey: cmd.WeekKey,
		Round:   cmd.Round,
		Policy:  policy,
	})
	if err != nil {
		return nil, err
	}

	// Step 5: no survivor still records an empty batch, so the next call
	// short-circuits at step 1 instead of re-scoring the pool.
	var proposal *matching.Proposal
	if best != nil {
		proposal, err = matching.NewProposal(matching.NewProposalParams{
			ID:          h.idGenerator.GenerateID(),
			BatchID:     batch.ID,
			ProposerID:  userID,
			CandidateID: best.candidate.ID,
			WeekKey:     cmd.WeekKey,
			Round:       cmd.Round,
			Score:       best.result.Score,
			Reasons:     best.result.Reasons,
		})
		if err != nil {
			return nil, err
		}
	}

	// Step 6: single atomic write with an in-transaction re-check. Losing
	// the race to a concurrent duplicate call degrades into a safe no-op.
	if err := h.matchRepo.Batches().CreateWithProposal(ctx, batch, proposal); err != nil {
		if shared.IsAlreadyExists(err) {
			h.logger.Debug("concurrent generation lost the race",
				"user_id", cmd.UserID,
				"round_key", roundKey.String(),
			)
			return &GenerateWeeklyMatchResult{AlreadyExisted: true}, nil
		}
		return nil, shared.WrapError("matching", "Generate", shared.ErrInternal, "batch write failed", err)
	}

	if proposal != nil {
		event := shared.NewProposalCreatedEvent(
			proposal.ID,
			proposal.ProposerID.String(),
			proposal.CandidateID.String(),
			proposal.WeekKey.String(),
			proposal.Round.String(),
			proposal.Score.Int(),
		)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	}

	return &GenerateWeeklyMatchResult{
		Proposal:             proposal,
		CandidatesConsidered: poolSize,
	}, nil
}

// scoredCandidate pairs a pool member with their score.
type scoredCandidate struct {
	candidate *user.User
	result    matching.ScoreResult
	order     int
}

// findBestCandidate builds the pool, applies cooldown, scores every survivor
// and returns the highest-scoring candidate at or above the policy threshold
// (nil if none). Per-candidate failures are skipped, never fatal.
func (h *GenerateWeeklyMatchHandler) findBestCandidate(
	ctx context.Context,
	requester *user.User,
	vector *profile.UserVector,
	policy matching.MatchPolicy,
) (*scoredCandidate, int, error) {
	population, err := h.userRepo.ListActive(ctx)
	if err != nil {
		return nil, 0, shared.WrapError("matching", "Generate", shared.ErrInternal, "population load failed", err)
	}

	blockedSet, err := h.blockRepo.BlockedSetFor(ctx, requester.ID)
	if err != nil {
		return nil, 0, shared.WrapError("matching", "Generate", shared.ErrInternal, "block lookup failed", err)
	}

	pool := matching.FilterCandidates(requester, population, matching.CandidateSet(blockedSet))

	cooldownSince := time.Now().UTC().AddDate(0, 0, -policy.CooldownDays)
	rejectedIDs, err := h.matchRepo.Proposals().RecentlyRejectedCandidateIDs(ctx, requester.ID, cooldownSince)
	if err != nil {
		return nil, 0, shared.WrapError("matching", "Generate", shared.ErrInternal, "cooldown lookup failed", err)
	}
	pool = matching.ApplyCooldown(pool, matching.NewCandidateSet(rejectedIDs))

	scored := make([]scoredCandidate, 0, len(pool))
	for i, candidate := range pool {
		candidateVector, err := h.vectorProvider.GetVector(ctx, candidate.ID)
		if err != nil {
			// Best-effort pool: a candidate whose vector cannot be
			// loaded is skipped, not fatal to the run.
			if !shared.IsNotFound(err) {
				h.logger.Warn("skipping candidate, vector load failed",
					"candidate_id", candidate.ID.String(),
					"error", err,
				)
			}
			continue
		}

		result := matching.Score(vector, candidateVector)
		if !result.Score.Meets(policy.Threshold) {
			continue
		}

		scored = append(scored, scoredCandidate{
			candidate: candidate,
			result:    result,
			order:     i,
		})
	}

	if len(scored) == 0 {
		return nil, len(pool), nil
	}

	// Highest score first; equal scores resolve by pool order, which is the
	// stable ListActive ordering (ascending user ID).
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].result.Score != scored[j].result.Score {
			return scored[i].result.Score > scored[j].result.Score
		}
		return scored[i].order < scored[j].order
	})

	best := scored[0]
	return &best, len(pool), nil
}
