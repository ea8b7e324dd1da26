package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

type respondEnv struct {
	handler   *RespondToProposalHandler
	matchRepo *fakeMatchRepo
	notifier  *fakeNotifier
	publisher *fakePublisher
}

func newRespondEnv(t *testing.T) *respondEnv {
	t.Helper()
	env := &respondEnv{
		matchRepo: newFakeMatchRepo(),
		notifier:  &fakeNotifier{channelRef: "chan-ab"},
		publisher: &fakePublisher{},
	}
	env.handler = NewRespondToProposalHandler(env.matchRepo, env.notifier, env.publisher, testLogger())
	return env
}

func (env *respondEnv) seedProposal(t *testing.T, id, proposer, candidate string) *matching.Proposal {
	t.Helper()
	p, err := matching.NewProposal(matching.NewProposalParams{
		ID:          id,
		BatchID:     "batch-" + id,
		ProposerID:  shared.UserID(proposer),
		CandidateID: shared.UserID(candidate),
		WeekKey:     "2026-W07",
		Round:       matching.RoundThursday,
		Score:       88,
	})
	assert.NoError(t, err)
	env.matchRepo.proposals.put(p)
	return p
}

func TestRespondToProposal_Accept(t *testing.T) {
	env := newRespondEnv(t)
	env.seedProposal(t, "p1", "user-a", "user-b")

	result, err := env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID:   "p1",
		ActingUserID: "user-a",
		Action:       matching.ActionAccept,
	})

	assert.NoError(t, err)
	assert.Equal(t, matching.ProposalStatusAccepted, result.Status)
	assert.False(t, result.Mutual)
	assert.False(t, result.NoOp)
	assert.Equal(t, 0, env.notifier.calls)
	assert.Equal(t, 1, env.publisher.published(shared.EventProposalAccepted))
}

func TestRespondToProposal_Reject(t *testing.T) {
	env := newRespondEnv(t)
	p := env.seedProposal(t, "p1", "user-a", "user-b")

	result, err := env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID:   "p1",
		ActingUserID: "user-a",
		Action:       matching.ActionReject,
		Reason:       "not my type",
	})

	assert.NoError(t, err)
	assert.Equal(t, matching.ProposalStatusRejected, result.Status)
	assert.Equal(t, matching.ProposalStatusRejected, p.Status)
	assert.Equal(t, "not my type", p.RejectReason)
	assert.Equal(t, 1, env.publisher.published(shared.EventProposalRejected))
}

func TestRespondToProposal_MutualFlip(t *testing.T) {
	env := newRespondEnv(t)
	env.seedProposal(t, "p1", "user-a", "user-b")
	mirror := env.seedProposal(t, "p2", "user-b", "user-a")

	// user-b already accepted their side of the pair.
	_, err := env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID:   "p2",
		ActingUserID: "user-b",
		Action:       matching.ActionAccept,
	})
	assert.NoError(t, err)
	assert.Equal(t, matching.ProposalStatusAccepted, mirror.Status)

	// user-a's accept completes the mutual match.
	result, err := env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID:   "p1",
		ActingUserID: "user-a",
		Action:       matching.ActionAccept,
	})

	assert.NoError(t, err)
	assert.Equal(t, matching.ProposalStatusMutualAccepted, result.Status)
	assert.True(t, result.Mutual)
	assert.Equal(t, "chan-ab", result.ChannelRef)
	assert.Equal(t, matching.ProposalStatusMutualAccepted, mirror.Status)

	// Exactly one channel call and one mutual event for the pair.
	assert.Equal(t, 1, env.notifier.calls)
	assert.Equal(t, 1, env.publisher.published(shared.EventMutualMatchCreated))
	assert.Equal(t, 1, env.publisher.published(shared.EventProposalAccepted))
}

func TestRespondToProposal_ConcurrentAcceptsFlipOnce(t *testing.T) {
	env := newRespondEnv(t)
	p1 := env.seedProposal(t, "p1", "user-a", "user-b")
	p2 := env.seedProposal(t, "p2", "user-b", "user-a")

	// Both sides of the pair accept at the same instant. Whichever accept
	// lands second must see the other side's committed accept and flip;
	// the pair must never end up stuck at accepted/accepted.
	cmds := []RespondToProposalCommand{
		{ProposalID: "p1", ActingUserID: "user-a", Action: matching.ActionAccept},
		{ProposalID: "p2", ActingUserID: "user-b", Action: matching.ActionAccept},
	}
	results := make([]*RespondToProposalResult, len(cmds))
	errs := make([]error, len(cmds))

	var wg sync.WaitGroup
	for i := range cmds {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.handler.Handle(context.Background(), cmds[i])
		}(i)
	}
	wg.Wait()

	flips := 0
	for i := range cmds {
		assert.NoError(t, errs[i])
		if results[i].Mutual {
			flips++
		}
	}
	assert.Equal(t, 1, flips)

	assert.Equal(t, matching.ProposalStatusMutualAccepted, p1.Status)
	assert.Equal(t, matching.ProposalStatusMutualAccepted, p2.Status)

	// One channel, one mutual event, one plain accept for the losing side.
	assert.Equal(t, 1, env.notifier.calls)
	assert.Equal(t, 1, env.publisher.published(shared.EventMutualMatchCreated))
	assert.Equal(t, 1, env.publisher.published(shared.EventProposalAccepted))
}

func TestRespondToProposal_MutualAcrossRounds(t *testing.T) {
	env := newRespondEnv(t)
	env.seedProposal(t, "p1", "user-a", "user-b")

	// The mirror came out of the Friday round; mutual detection works on
	// the week, not the round.
	mirror, err := matching.NewProposal(matching.NewProposalParams{
		ID:          "p2",
		BatchID:     "batch-p2",
		ProposerID:  "user-b",
		CandidateID: "user-a",
		WeekKey:     "2026-W07",
		Round:       matching.RoundFriday,
		Score:       85,
	})
	assert.NoError(t, err)
	assert.NoError(t, mirror.Accept())
	env.matchRepo.proposals.put(mirror)

	result, err := env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID: "p1", ActingUserID: "user-a", Action: matching.ActionAccept,
	})

	assert.NoError(t, err)
	assert.True(t, result.Mutual)
	assert.Equal(t, matching.ProposalStatusMutualAccepted, mirror.Status)
}

func TestRespondToProposal_NotifierFailureDoesNotRollBack(t *testing.T) {
	env := newRespondEnv(t)
	env.notifier.err = errors.New("conversation service down")

	env.seedProposal(t, "p1", "user-a", "user-b")
	mirror := env.seedProposal(t, "p2", "user-b", "user-a")
	assert.NoError(t, mirror.Accept())

	result, err := env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID:   "p1",
		ActingUserID: "user-a",
		Action:       matching.ActionAccept,
	})

	// The mutual transition stands; only the channel reference is missing.
	assert.NoError(t, err)
	assert.True(t, result.Mutual)
	assert.Empty(t, result.ChannelRef)
	assert.Equal(t, 1, env.publisher.published(shared.EventMutualMatchCreated))
}

func TestRespondToProposal_RepeatAcceptIsNoop(t *testing.T) {
	env := newRespondEnv(t)
	env.seedProposal(t, "p1", "user-a", "user-b")

	cmd := RespondToProposalCommand{ProposalID: "p1", ActingUserID: "user-a", Action: matching.ActionAccept}

	_, err := env.handler.Handle(context.Background(), cmd)
	assert.NoError(t, err)

	result, err := env.handler.Handle(context.Background(), cmd)
	assert.NoError(t, err)
	assert.True(t, result.NoOp)
	assert.Equal(t, matching.ProposalStatusAccepted, result.Status)

	// No duplicate event for the repeat.
	assert.Equal(t, 1, env.publisher.published(shared.EventProposalAccepted))
}

func TestRespondToProposal_RepeatOnMutualIsNoop(t *testing.T) {
	env := newRespondEnv(t)
	p := env.seedProposal(t, "p1", "user-a", "user-b")
	assert.NoError(t, p.MarkMutual())

	// Either action on a completed match is a safe no-op.
	result, err := env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID: "p1", ActingUserID: "user-a", Action: matching.ActionReject,
	})
	assert.NoError(t, err)
	assert.True(t, result.NoOp)
	assert.True(t, result.Mutual)
	assert.Equal(t, 0, env.notifier.calls)
}

func TestRespondToProposal_ConflictingActionOnTerminal(t *testing.T) {
	env := newRespondEnv(t)
	p := env.seedProposal(t, "p1", "user-a", "user-b")
	assert.NoError(t, p.Reject(""))

	_, err := env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID: "p1", ActingUserID: "user-a", Action: matching.ActionAccept,
	})
	assert.ErrorIs(t, err, shared.ErrProposalTerminal)
}

func TestRespondToProposal_ForeignProposalLooksMissing(t *testing.T) {
	env := newRespondEnv(t)
	env.seedProposal(t, "p1", "user-a", "user-b")

	// The candidate is not the owner of the decision; they get NotFound,
	// never Forbidden, so IDs cannot be probed.
	_, err := env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID: "p1", ActingUserID: "user-b", Action: matching.ActionAccept,
	})
	assert.ErrorIs(t, err, shared.ErrProposalNotFound)

	_, err = env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID: "missing", ActingUserID: "user-a", Action: matching.ActionAccept,
	})
	assert.ErrorIs(t, err, shared.ErrProposalNotFound)
}

func TestRespondToProposal_Validation(t *testing.T) {
	env := newRespondEnv(t)

	_, err := env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID: "", ActingUserID: "user-a", Action: matching.ActionAccept,
	})
	assert.True(t, shared.IsValidation(err))

	_, err = env.handler.Handle(context.Background(), RespondToProposalCommand{
		ProposalID: "p1", ActingUserID: "user-a", Action: "maybe",
	})
	assert.True(t, shared.IsValidation(err))
}
