package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

func TestGetCurrentProposal_None(t *testing.T) {
	handler := NewGetCurrentProposalHandler(newFakeMatchRepo())

	dto, err := handler.Handle(context.Background(), GetCurrentProposalQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	assert.NoError(t, err)
	assert.Nil(t, dto)
}

func TestGetCurrentProposal_ThursdayOnly(t *testing.T) {
	repo := newFakeMatchRepo()
	repo.seed(t, "p-thu", "user-a", "user-b", matching.RoundThursday, matching.ProposalStatusPending)

	handler := NewGetCurrentProposalHandler(repo)
	dto, err := handler.Handle(context.Background(), GetCurrentProposalQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	assert.NoError(t, err)
	assert.NotNil(t, dto)
	assert.Equal(t, "p-thu", dto.ID)
	assert.Equal(t, "user-b", dto.CandidateID)
	assert.Equal(t, "thu", dto.Round)
	assert.Equal(t, 86, dto.Score)
}

func TestGetCurrentProposal_FridayOverridesThursday(t *testing.T) {
	// A second-chance proposal exists: it is the actual current one, the
	// Thursday record stayed accepted-without-mutual.
	repo := newFakeMatchRepo()
	repo.seed(t, "p-thu", "user-a", "user-b", matching.RoundThursday, matching.ProposalStatusAccepted)
	repo.seed(t, "p-fri", "user-a", "user-c", matching.RoundFriday, matching.ProposalStatusPending)

	handler := NewGetCurrentProposalHandler(repo)
	dto, err := handler.Handle(context.Background(), GetCurrentProposalQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	assert.NoError(t, err)
	assert.NotNil(t, dto)
	assert.Equal(t, "p-fri", dto.ID)
}

func TestGetCurrentProposal_MutualBeatsEverything(t *testing.T) {
	// The Thursday pair completed mutually after the Friday drop: the
	// mutual match is what the user sees, regardless of round.
	repo := newFakeMatchRepo()
	repo.seed(t, "p-thu", "user-a", "user-b", matching.RoundThursday, matching.ProposalStatusMutualAccepted)
	repo.seed(t, "p-fri", "user-a", "user-c", matching.RoundFriday, matching.ProposalStatusPending)

	handler := NewGetCurrentProposalHandler(repo)
	dto, err := handler.Handle(context.Background(), GetCurrentProposalQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	assert.NoError(t, err)
	assert.NotNil(t, dto)
	assert.Equal(t, "p-thu", dto.ID)
	assert.Equal(t, "mutual_accepted", dto.Status)
}

func TestGetCurrentProposal_FridayMutual(t *testing.T) {
	repo := newFakeMatchRepo()
	repo.seed(t, "p-thu", "user-a", "user-b", matching.RoundThursday, matching.ProposalStatusAccepted)
	repo.seed(t, "p-fri", "user-a", "user-c", matching.RoundFriday, matching.ProposalStatusMutualAccepted)

	handler := NewGetCurrentProposalHandler(repo)
	dto, err := handler.Handle(context.Background(), GetCurrentProposalQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	assert.NoError(t, err)
	assert.NotNil(t, dto)
	assert.Equal(t, "p-fri", dto.ID)
}

func TestGetCurrentProposal_OtherUsersProposalInvisible(t *testing.T) {
	repo := newFakeMatchRepo()
	repo.seed(t, "p1", "user-b", "user-a", matching.RoundThursday, matching.ProposalStatusPending)

	handler := NewGetCurrentProposalHandler(repo)
	dto, err := handler.Handle(context.Background(), GetCurrentProposalQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	// Being someone's candidate is not having a proposal of your own.
	assert.NoError(t, err)
	assert.Nil(t, dto)
}

func TestGetCurrentProposal_DefaultsToCurrentWeek(t *testing.T) {
	handler := NewGetCurrentProposalHandler(newFakeMatchRepo())

	dto, err := handler.Handle(context.Background(), GetCurrentProposalQuery{UserID: "user-a"})
	assert.NoError(t, err)
	assert.Nil(t, dto)
}

func TestGetCurrentProposal_Validation(t *testing.T) {
	handler := NewGetCurrentProposalHandler(newFakeMatchRepo())

	_, err := handler.Handle(context.Background(), GetCurrentProposalQuery{
		UserID:  "",
		WeekKey: "2026-W07",
	})
	assert.True(t, shared.IsValidation(err))

	_, err = handler.Handle(context.Background(), GetCurrentProposalQuery{
		UserID:  "user-a",
		WeekKey: "W07",
	})
	assert.True(t, shared.IsValidation(err))
}
