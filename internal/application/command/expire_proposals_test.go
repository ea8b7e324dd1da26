package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

func newExpireHandler(repo *fakeMatchRepo, publisher *fakePublisher) *ExpireProposalsHandler {
	return NewExpireProposalsHandler(repo, publisher, testLogger(), matching.DefaultMatchPolicy())
}

// staleProposal seeds a pending proposal created in the past.
func staleProposal(t *testing.T, repo *fakeMatchRepo, id string, age time.Duration, round matching.Round) *matching.Proposal {
	t.Helper()
	p, err := matching.NewProposal(matching.NewProposalParams{
		ID:          id,
		BatchID:     "batch-" + id,
		ProposerID:  shared.UserID("proposer-" + id),
		CandidateID: shared.UserID("candidate-" + id),
		WeekKey:     "2026-W07",
		Round:       round,
		Score:       85,
	})
	assert.NoError(t, err)
	p.CreatedAt = time.Now().UTC().Add(-age)
	repo.proposals.put(p)
	return p
}

func TestExpireProposals_SweepsStalePending(t *testing.T) {
	repo := newFakeMatchRepo()
	publisher := &fakePublisher{}
	handler := newExpireHandler(repo, publisher)

	stale := staleProposal(t, repo, "p1", 72*time.Hour, matching.RoundThursday)
	fresh := staleProposal(t, repo, "p2", 1*time.Hour, matching.RoundThursday)

	result, err := handler.Handle(context.Background(), ExpireProposalsCommand{
		WeekKey: "2026-W07",
		Round:   matching.RoundThursday,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), result.ExpiredCount)
	assert.Equal(t, matching.ProposalStatusExpired, stale.Status)
	assert.NotNil(t, stale.ActedAt)
	assert.Equal(t, matching.ProposalStatusPending, fresh.Status)
	assert.Equal(t, 1, publisher.published(shared.EventProposalsExpired))
}

func TestExpireProposals_RepeatSweepIsNoop(t *testing.T) {
	repo := newFakeMatchRepo()
	publisher := &fakePublisher{}
	handler := newExpireHandler(repo, publisher)

	staleProposal(t, repo, "p1", 72*time.Hour, matching.RoundThursday)

	cmd := ExpireProposalsCommand{WeekKey: "2026-W07", Round: matching.RoundThursday}

	first, err := handler.Handle(context.Background(), cmd)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), first.ExpiredCount)

	// The first pass moved everything out of pending; the repeat touches
	// zero rows and emits no event.
	second, err := handler.Handle(context.Background(), cmd)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), second.ExpiredCount)
	assert.Equal(t, 1, publisher.published(shared.EventProposalsExpired))
}

func TestExpireProposals_LeavesRespondedAlone(t *testing.T) {
	repo := newFakeMatchRepo()
	handler := newExpireHandler(repo, &fakePublisher{})

	accepted := staleProposal(t, repo, "p1", 72*time.Hour, matching.RoundThursday)
	assert.NoError(t, accepted.Accept())
	rejected := staleProposal(t, repo, "p2", 72*time.Hour, matching.RoundThursday)
	assert.NoError(t, rejected.Reject(""))

	result, err := handler.Handle(context.Background(), ExpireProposalsCommand{
		WeekKey: "2026-W07",
		Round:   matching.RoundThursday,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(0), result.ExpiredCount)
	assert.Equal(t, matching.ProposalStatusAccepted, accepted.Status)
	assert.Equal(t, matching.ProposalStatusRejected, rejected.Status)
}

func TestExpireProposals_ScopedToRound(t *testing.T) {
	repo := newFakeMatchRepo()
	handler := newExpireHandler(repo, &fakePublisher{})

	staleProposal(t, repo, "p1", 72*time.Hour, matching.RoundThursday)
	friday := staleProposal(t, repo, "p2", 72*time.Hour, matching.RoundFriday)

	result, err := handler.Handle(context.Background(), ExpireProposalsCommand{
		WeekKey: "2026-W07",
		Round:   matching.RoundThursday,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), result.ExpiredCount)
	assert.Equal(t, matching.ProposalStatusPending, friday.Status)
}

func TestExpireProposals_TTLOverride(t *testing.T) {
	repo := newFakeMatchRepo()
	handler := newExpireHandler(repo, &fakePublisher{})

	// Too young for the 48h default, stale under a 2h TTL.
	p := staleProposal(t, repo, "p1", 6*time.Hour, matching.RoundThursday)

	result, err := handler.Handle(context.Background(), ExpireProposalsCommand{
		WeekKey:  "2026-W07",
		Round:    matching.RoundThursday,
		TTLHours: 2,
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(1), result.ExpiredCount)
	assert.Equal(t, matching.ProposalStatusExpired, p.Status)
}

func TestExpireProposals_Validation(t *testing.T) {
	handler := newExpireHandler(newFakeMatchRepo(), &fakePublisher{})

	_, err := handler.Handle(context.Background(), ExpireProposalsCommand{
		WeekKey: "nope", Round: matching.RoundThursday,
	})
	assert.True(t, shared.IsValidation(err))

	_, err = handler.Handle(context.Background(), ExpireProposalsCommand{
		WeekKey: "2026-W07", Round: matching.RoundThursday, TTLHours: -1,
	})
	assert.True(t, shared.IsValidation(err))
}
