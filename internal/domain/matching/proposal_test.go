package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

func newTestProposal(t *testing.T) *Proposal {
	t.Helper()
	p, err := NewProposal(NewProposalParams{
		ID:          "prop-1",
		BatchID:     "batch-1",
		ProposerID:  "user-a",
		CandidateID: "user-b",
		WeekKey:     "2026-W07",
		Round:       RoundThursday,
		Score:       87,
		Reasons:     []string{"You both prefer quiet evenings over big crowds."},
	})
	assert.NoError(t, err)
	return p
}

func TestNewProposal(t *testing.T) {
	p := newTestProposal(t)

	assert.Equal(t, ProposalStatusPending, p.Status)
	assert.Equal(t, 1, p.Rank)
	assert.Nil(t, p.ActedAt)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestNewProposal_Validation(t *testing.T) {
	valid := NewProposalParams{
		ID:          "prop-1",
		BatchID:     "batch-1",
		ProposerID:  "user-a",
		CandidateID: "user-b",
		WeekKey:     "2026-W07",
		Round:       RoundThursday,
		Score:       87,
	}

	params := valid
	params.ID = ""
	_, err := NewProposal(params)
	assert.Error(t, err)

	params = valid
	params.CandidateID = params.ProposerID
	_, err = NewProposal(params)
	assert.Error(t, err)

	params = valid
	params.WeekKey = "bad-week"
	_, err = NewProposal(params)
	assert.ErrorIs(t, err, shared.ErrInvalidWeekKey)

	params = valid
	params.Score = 150
	_, err = NewProposal(params)
	assert.ErrorIs(t, err, shared.ErrInvalidScore)
}

func TestProposal_Accept(t *testing.T) {
	p := newTestProposal(t)

	assert.NoError(t, p.Accept())
	assert.Equal(t, ProposalStatusAccepted, p.Status)
	assert.NotNil(t, p.ActedAt)

	// accepted is not re-acceptable through the transition itself.
	assert.ErrorIs(t, p.Accept(), shared.ErrProposalTerminal)
}

func TestProposal_Reject(t *testing.T) {
	p := newTestProposal(t)

	assert.NoError(t, p.Reject("not my type"))
	assert.Equal(t, ProposalStatusRejected, p.Status)
	assert.Equal(t, "not my type", p.RejectReason)
	assert.NotNil(t, p.ActedAt)
}

func TestProposal_MarkMutual(t *testing.T) {
	// From pending: the responder accepts and immediately completes the match.
	p := newTestProposal(t)
	assert.NoError(t, p.MarkMutual())
	assert.Equal(t, ProposalStatusMutualAccepted, p.Status)

	// From accepted: the mirror side completes the match later.
	p = newTestProposal(t)
	assert.NoError(t, p.Accept())
	assert.NoError(t, p.MarkMutual())
	assert.Equal(t, ProposalStatusMutualAccepted, p.Status)

	// Not from rejected.
	p = newTestProposal(t)
	assert.NoError(t, p.Reject(""))
	assert.ErrorIs(t, p.MarkMutual(), shared.ErrProposalTerminal)
}

func TestProposal_MarkExpired(t *testing.T) {
	p := newTestProposal(t)
	assert.NoError(t, p.MarkExpired())
	assert.Equal(t, ProposalStatusExpired, p.Status)

	p = newTestProposal(t)
	assert.NoError(t, p.Accept())
	assert.ErrorIs(t, p.MarkExpired(), shared.ErrProposalTerminal)
}

func TestProposal_ValidateResponse(t *testing.T) {
	p := newTestProposal(t)

	// Pending accepts any valid action.
	noop, err := p.ValidateResponse(ActionAccept)
	assert.NoError(t, err)
	assert.False(t, noop)

	_, err = p.ValidateResponse("maybe")
	assert.ErrorIs(t, err, shared.ErrInvalidAction)
}

func TestProposal_ValidateResponse_RepeatIsNoop(t *testing.T) {
	p := newTestProposal(t)
	assert.NoError(t, p.Accept())

	// Repeating the same action is an idempotent success.
	noop, err := p.ValidateResponse(ActionAccept)
	assert.NoError(t, err)
	assert.True(t, noop)

	// The opposite action on a terminal status is a conflict.
	_, err = p.ValidateResponse(ActionReject)
	assert.ErrorIs(t, err, shared.ErrProposalTerminal)
}

func TestProposal_ValidateResponse_MutualIsAlwaysNoop(t *testing.T) {
	p := newTestProposal(t)
	assert.NoError(t, p.MarkMutual())

	noop, err := p.ValidateResponse(ActionAccept)
	assert.NoError(t, err)
	assert.True(t, noop)

	noop, err = p.ValidateResponse(ActionReject)
	assert.NoError(t, err)
	assert.True(t, noop)
}

func TestProposal_ValidateResponse_Expired(t *testing.T) {
	p := newTestProposal(t)
	assert.NoError(t, p.MarkExpired())

	_, err := p.ValidateResponse(ActionAccept)
	assert.ErrorIs(t, err, shared.ErrProposalTerminal)
	_, err = p.ValidateResponse(ActionReject)
	assert.ErrorIs(t, err, shared.ErrProposalTerminal)
}

func TestProposal_IsOwnedBy(t *testing.T) {
	p := newTestProposal(t)

	assert.True(t, p.IsOwnedBy("user-a"))
	assert.False(t, p.IsOwnedBy("user-b"))
	assert.False(t, p.IsOwnedBy("user-c"))
}
