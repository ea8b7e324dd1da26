package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// fakeMatchRepo is a read-only in-memory proposal store for query tests.
type fakeMatchRepo struct {
	proposals map[string]*matching.Proposal
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{proposals: make(map[string]*matching.Proposal)}
}

func (r *fakeMatchRepo) Batches() matching.BatchRepository { return nil }

func (r *fakeMatchRepo) Proposals() matching.ProposalRepository { return r }

func (r *fakeMatchRepo) seed(t *testing.T, id, proposer, candidate string, round matching.Round, status matching.ProposalStatus) *matching.Proposal {
	t.Helper()
	p, err := matching.NewProposal(matching.NewProposalParams{
		ID:          id,
		BatchID:     "batch-" + id,
		ProposerID:  shared.UserID(proposer),
		CandidateID: shared.UserID(candidate),
		WeekKey:     "2026-W07",
		Round:       round,
		Score:       86,
	})
	assert.NoError(t, err)
	p.Status = status
	r.proposals[p.ID] = p
	return p
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id string) (*matching.Proposal, error) {
	p, ok := r.proposals[id]
	if !ok {
		return nil, shared.ErrProposalNotFound
	}
	return p, nil
}

func (r *fakeMatchRepo) GetByProposerAndRound(_ context.Context, proposerID shared.UserID, week matching.WeekKey, round matching.Round) (*matching.Proposal, error) {
	for _, p := range r.proposals {
		if p.ProposerID == proposerID && p.WeekKey == week && p.Round == round {
			return p, nil
		}
	}
	return nil, shared.ErrProposalNotFound
}

func (r *fakeMatchRepo) GetMirror(_ context.Context, proposerID, candidateID shared.UserID, week matching.WeekKey) (*matching.Proposal, error) {
	for _, p := range r.proposals {
		if p.ProposerID == candidateID && p.CandidateID == proposerID && p.WeekKey == week {
			return p, nil
		}
	}
	return nil, shared.ErrProposalNotFound
}

func (r *fakeMatchRepo) Reject(_ context.Context, _ string, _ string) error {
	return nil
}

func (r *fakeMatchRepo) AcceptWithMutualCheck(_ context.Context, _ *matching.Proposal) (*matching.AcceptOutcome, error) {
	return nil, nil
}

func (r *fakeMatchRepo) ExpirePending(_ context.Context, _ matching.WeekKey, _ matching.Round, _ time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeMatchRepo) RecentlyRejectedCandidateIDs(_ context.Context, _ shared.UserID, _ time.Time) ([]shared.UserID, error) {
	return nil, nil
}

func (r *fakeMatchRepo) AcceptedProposerIDs(_ context.Context, week matching.WeekKey, round matching.Round) ([]shared.UserID, error) {
	var ids []shared.UserID
	for _, p := range r.proposals {
		if p.WeekKey == week && p.Round == round && p.Status == matching.ProposalStatusAccepted {
			ids = append(ids, p.ProposerID)
		}
	}
	return ids, nil
}
