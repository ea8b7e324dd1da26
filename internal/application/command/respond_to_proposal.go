package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPOND TO PROPOSAL COMMAND
// The only mutating entry point exposed to user-facing code. Drives the
// proposal state machine; an accept may complete a mutual match, which is
// the crux correctness property of the engine: two users accepting each
// other at nearly the same instant must yield exactly one mutual transition,
// never a lost update and never a duplicate notification.
// ══════════════════════════════════════════════════════════════════════════════

// ConversationNotifier defines the interface to the external conversation
// subsystem. Called exactly once per mutual transition; the receiving side
// is idempotent on (userA, userB, weekKey).
type ConversationNotifier interface {
	// EnsureChannel establishes (or finds) the conversation channel for a
	// matched pair. Returns an opaque channel reference.
	EnsureChannel(ctx context.Context, userAID, userBID string, weekKey string) (string, error)
}

// RespondToProposalCommand contains a user's accept/reject decision.
type RespondToProposalCommand struct {
	// ProposalID is the proposal being responded to.
	ProposalID string

	// ActingUserID is the user submitting the response. Must be the
	// proposal's proposer; anyone else gets NotFound, never Forbidden,
	// so proposal IDs cannot be enumerated.
	ActingUserID string

	// Action is accept or reject.
	Action matching.ResponseAction

	// Reason is an optional free-text rejection reason.
	Reason string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RespondToProposalCommand) Validate() error {
	if c.ProposalID == "" {
		return errors.New("respond_to_proposal: proposal_id is required")
	}
	if c.ActingUserID == "" {
		return errors.New("respond_to_proposal: acting_user_id is required")
	}
	if !c.Action.IsValid() {
		return fmt.Errorf("respond_to_proposal: invalid action: %s", c.Action)
	}
	return nil
}

// RespondToProposalResult contains the outcome of a response.
type RespondToProposalResult struct {
	// Status is the proposal status after the response.
	Status matching.ProposalStatus

	// Mutual is true when this response completed a mutual match.
	Mutual bool

	// ChannelRef is the conversation channel reference, set only when this
	// response performed the mutual flip and the notifier call succeeded.
	ChannelRef string

	// NoOp is true when the response was accepted as an idempotent repeat.
	NoOp bool
}

// RespondToProposalHandler handles the RespondToProposalCommand.
type RespondToProposalHandler struct {
	matchRepo      matching.Repository
	notifier       ConversationNotifier
	eventPublisher shared.EventPublisher
	logger         *slog.Logger
}

// NewRespondToProposalHandler creates a new RespondToProposalHandler.
func NewRespondToProposalHandler(
	matchRepo matching.Repository,
	notifier ConversationNotifier,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
) *RespondToProposalHandler {
	return &RespondToProposalHandler{
		matchRepo:      matchRepo,
		notifier:       notifier,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// Handle executes the response.
func (h *RespondToProposalHandler) Handle(ctx context.Context, cmd RespondToProposalCommand) (*RespondToProposalResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("matching", "Respond", shared.ErrValidation, "validation failed", err)
	}

	proposal, err := h.matchRepo.Proposals().GetByID(ctx, cmd.ProposalID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.ErrProposalNotFound
		}
		return nil, shared.WrapError("matching", "Respond", shared.ErrInternal, "proposal lookup failed", err)
	}

	// A foreign proposal is reported as missing, not forbidden: the caller
	// must not learn whether the ID exists at all.
	if !proposal.IsOwnedBy(shared.UserID(cmd.ActingUserID)) {
		return nil, shared.ErrProposalNotFound
	}

	noop, err := proposal.ValidateResponse(cmd.Action)
	if err != nil {
		return nil, err
	}
	if noop {
		return &RespondToProposalResult{
			Status: proposal.Status,
			Mutual: proposal.Status == matching.ProposalStatusMutualAccepted,
			NoOp:   true,
		}, nil
	}

	if cmd.Action == matching.ActionReject {
		return h.handleReject(ctx, cmd, proposal)
	}
	return h.handleAccept(ctx, cmd, proposal)
}

// handleReject updates a single proposal; rejects have no cross-proposal
// effects.
func (h *RespondToProposalHandler) handleReject(ctx context.Context, cmd RespondToProposalCommand, proposal *matching.Proposal) (*RespondToProposalResult, error) {
	if err := h.matchRepo.Proposals().Reject(ctx, proposal.ID, cmd.Reason); err != nil {
		return nil, shared.WrapError("matching", "Respond", shared.ErrInternal, "reject failed", err)
	}

	event := shared.NewProposalRejectedEvent(proposal.ID, proposal.ProposerID.String(), proposal.WeekKey.String())
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &RespondToProposalResult{Status: matching.ProposalStatusRejected}, nil
}

// handleAccept runs the atomic accept transaction. When the transaction
// performed the mutual flip, the conversation notifier fires strictly after
// the transaction - a notifier failure is logged but never rolls back
// proposal state.
func (h *RespondToProposalHandler) handleAccept(ctx context.Context, cmd RespondToProposalCommand, proposal *matching.Proposal) (*RespondToProposalResult, error) {
	outcome, err := h.matchRepo.Proposals().AcceptWithMutualCheck(ctx, proposal)
	if err != nil {
		return nil, shared.WrapError("matching", "Respond", shared.ErrInternal, "accept transaction failed", err)
	}

	result := &RespondToProposalResult{
		Status: outcome.Status,
		Mutual: outcome.Status == matching.ProposalStatusMutualAccepted,
	}

	if outcome.MutualFlipped {
		result.ChannelRef = h.notifyMutual(ctx, proposal)

		event := shared.NewMutualMatchCreatedEvent(
			proposal.ProposerID.String(),
			proposal.CandidateID.String(),
			proposal.WeekKey.String(),
		)
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	} else {
		event := shared.NewProposalAcceptedEvent(proposal.ID, proposal.ProposerID.String(), proposal.WeekKey.String())
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	}

	return result, nil
}

// notifyMutual calls the conversation subsystem, best-effort.
func (h *RespondToProposalHandler) notifyMutual(ctx context.Context, proposal *matching.Proposal) string {
	channelRef, err := h.notifier.EnsureChannel(
		ctx,
		proposal.ProposerID.String(),
		proposal.CandidateID.String(),
		proposal.WeekKey.String(),
	)
	if err != nil {
		h.logger.Error("conversation channel setup failed after mutual match",
			"proposer_id", proposal.ProposerID.String(),
			"candidate_id", proposal.CandidateID.String(),
			"week_key", proposal.WeekKey.String(),
			"error", err,
		)
		return ""
	}
	return channelRef
}
