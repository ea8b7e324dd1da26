package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPIRE PROPOSALS COMMAND
// Time-based sweep of stale pending proposals: one bulk update, no per-row
// branching. Safe to re-run - a repeat sweep affects zero rows because the
// first pass already moved everything out of pending.
// ══════════════════════════════════════════════════════════════════════════════

// ExpireProposalsCommand identifies the (week, round) to sweep.
type ExpireProposalsCommand struct {
	// WeekKey is the ISO week of the drop.
	WeekKey matching.WeekKey

	// Round is the drop round to sweep.
	Round matching.Round

	// TTLHours is how long a proposal may stay pending (0 = policy default).
	TTLHours int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ExpireProposalsCommand) Validate() error {
	if !c.WeekKey.IsValid() {
		return fmt.Errorf("expire_proposals: invalid week key: %s", c.WeekKey)
	}
	if !c.Round.IsValid() {
		return fmt.Errorf("expire_proposals: invalid round: %s", c.Round)
	}
	if c.TTLHours < 0 {
		return errors.New("expire_proposals: ttl_hours cannot be negative")
	}
	return nil
}

// ExpireProposalsResult contains the sweep outcome.
type ExpireProposalsResult struct {
	// ExpiredCount is the number of proposals transitioned to expired.
	ExpiredCount int64

	// Cutoff is the timestamp below which pendings were swept.
	Cutoff time.Time
}

// ExpireProposalsHandler handles the ExpireProposalsCommand.
type ExpireProposalsHandler struct {
	matchRepo      matching.Repository
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	defaultTTL time.Duration
}

// NewExpireProposalsHandler creates a new ExpireProposalsHandler.
func NewExpireProposalsHandler(
	matchRepo matching.Repository,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	policy matching.MatchPolicy,
) *ExpireProposalsHandler {
	if policy.ProposalTTLHours == 0 {
		policy = matching.DefaultMatchPolicy()
	}

	return &ExpireProposalsHandler{
		matchRepo:      matchRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
		defaultTTL:     time.Duration(policy.ProposalTTLHours) * time.Hour,
	}
}

// Handle executes the sweep.
func (h *ExpireProposalsHandler) Handle(ctx context.Context, cmd ExpireProposalsCommand) (*ExpireProposalsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("matching", "Expire", shared.ErrValidation, "validation failed", err)
	}

	ttl := h.defaultTTL
	if cmd.TTLHours > 0 {
		ttl = time.Duration(cmd.TTLHours) * time.Hour
	}
	cutoff := time.Now().UTC().Add(-ttl)

	count, err := h.matchRepo.Proposals().ExpirePending(ctx, cmd.WeekKey, cmd.Round, cutoff)
	if err != nil {
		return nil, shared.WrapError("matching", "Expire", shared.ErrInternal, "expiration sweep failed", err)
	}

	if count > 0 {
		h.logger.Info("expired stale pending proposals",
			"week_key", cmd.WeekKey.String(),
			"round", cmd.Round.String(),
			"count", count,
		)

		event := shared.NewProposalsExpiredEvent(cmd.WeekKey.String(), cmd.Round.String(), count)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	}

	return &ExpireProposalsResult{
		ExpiredCount: count,
		Cutoff:       cutoff,
	}, nil
}
