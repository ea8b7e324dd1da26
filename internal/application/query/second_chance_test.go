package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

func TestSecondChance_EligibleWhenAcceptedWithoutMutual(t *testing.T) {
	repo := newFakeMatchRepo()
	repo.seed(t, "p1", "user-a", "user-b", matching.RoundThursday, matching.ProposalStatusAccepted)

	handler := NewSecondChanceEligibilityHandler(repo)
	dto, err := handler.Handle(context.Background(), SecondChanceEligibilityQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	assert.NoError(t, err)
	assert.True(t, dto.Eligible)
	assert.Equal(t, ReasonEligible, dto.Reason)
}

func TestSecondChance_NoFirstRoundProposal(t *testing.T) {
	handler := NewSecondChanceEligibilityHandler(newFakeMatchRepo())

	dto, err := handler.Handle(context.Background(), SecondChanceEligibilityQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	assert.NoError(t, err)
	assert.False(t, dto.Eligible)
	assert.Equal(t, ReasonNoFirstRoundProposal, dto.Reason)
}

func TestSecondChance_NotAccepted(t *testing.T) {
	statuses := []matching.ProposalStatus{
		matching.ProposalStatusPending,
		matching.ProposalStatusRejected,
		matching.ProposalStatusExpired,
		matching.ProposalStatusMutualAccepted,
	}

	for _, status := range statuses {
		repo := newFakeMatchRepo()
		repo.seed(t, "p1", "user-a", "user-b", matching.RoundThursday, status)

		handler := NewSecondChanceEligibilityHandler(repo)
		dto, err := handler.Handle(context.Background(), SecondChanceEligibilityQuery{
			UserID:  "user-a",
			WeekKey: "2026-W07",
		})

		assert.NoError(t, err)
		assert.False(t, dto.Eligible, "status %s must not be eligible", status)
		assert.Equal(t, ReasonNotAccepted, dto.Reason)
	}
}

func TestSecondChance_MirrorAlreadyAccepted(t *testing.T) {
	// user-b accepted their Thursday proposal pointing back at user-a:
	// the pair should resolve through the mutual path, not a new candidate.
	repo := newFakeMatchRepo()
	repo.seed(t, "p1", "user-a", "user-b", matching.RoundThursday, matching.ProposalStatusAccepted)
	repo.seed(t, "p2", "user-b", "user-a", matching.RoundThursday, matching.ProposalStatusAccepted)

	handler := NewSecondChanceEligibilityHandler(repo)
	dto, err := handler.Handle(context.Background(), SecondChanceEligibilityQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	assert.NoError(t, err)
	assert.False(t, dto.Eligible)
	assert.Equal(t, ReasonMirrorAccepted, dto.Reason)
}

func TestSecondChance_FridayMirrorAcceptedBlocks(t *testing.T) {
	// The mirror may come out of any round of the week: a Friday accept
	// pointing back at user-a still resolves through the mutual path.
	repo := newFakeMatchRepo()
	repo.seed(t, "p1", "user-a", "user-b", matching.RoundThursday, matching.ProposalStatusAccepted)
	repo.seed(t, "p2", "user-b", "user-a", matching.RoundFriday, matching.ProposalStatusAccepted)

	handler := NewSecondChanceEligibilityHandler(repo)
	dto, err := handler.Handle(context.Background(), SecondChanceEligibilityQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	assert.NoError(t, err)
	assert.False(t, dto.Eligible)
	assert.Equal(t, ReasonMirrorAccepted, dto.Reason)
}

func TestSecondChance_MirrorPointsElsewhere(t *testing.T) {
	// user-b accepted a proposal, but it targets user-c, not user-a.
	repo := newFakeMatchRepo()
	repo.seed(t, "p1", "user-a", "user-b", matching.RoundThursday, matching.ProposalStatusAccepted)
	repo.seed(t, "p2", "user-b", "user-c", matching.RoundThursday, matching.ProposalStatusAccepted)

	handler := NewSecondChanceEligibilityHandler(repo)
	dto, err := handler.Handle(context.Background(), SecondChanceEligibilityQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	assert.NoError(t, err)
	assert.True(t, dto.Eligible)
	assert.Equal(t, ReasonEligible, dto.Reason)
}

func TestSecondChance_MirrorRejectedStaysEligible(t *testing.T) {
	repo := newFakeMatchRepo()
	repo.seed(t, "p1", "user-a", "user-b", matching.RoundThursday, matching.ProposalStatusAccepted)
	repo.seed(t, "p2", "user-b", "user-a", matching.RoundThursday, matching.ProposalStatusRejected)

	handler := NewSecondChanceEligibilityHandler(repo)
	dto, err := handler.Handle(context.Background(), SecondChanceEligibilityQuery{
		UserID:  "user-a",
		WeekKey: "2026-W07",
	})

	assert.NoError(t, err)
	assert.True(t, dto.Eligible)
	assert.Equal(t, ReasonEligible, dto.Reason)
}

func TestSecondChance_Validation(t *testing.T) {
	handler := NewSecondChanceEligibilityHandler(newFakeMatchRepo())

	_, err := handler.Handle(context.Background(), SecondChanceEligibilityQuery{
		UserID:  "",
		WeekKey: "2026-W07",
	})
	assert.True(t, shared.IsValidation(err))

	_, err = handler.Handle(context.Background(), SecondChanceEligibilityQuery{
		UserID:  "user-a",
		WeekKey: "not-a-week",
	})
	assert.True(t, shared.IsValidation(err))
}
