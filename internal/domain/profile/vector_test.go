package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

func TestComputeDimensions_NeutralBattery(t *testing.T) {
	// All threes map to the midpoint of every dimension.
	answers := make(map[ItemID]LikertValue, TotalItems)
	for i := 1; i <= TotalItems; i++ {
		answers[itemID(i)] = 3
	}

	dims, err := ComputeDimensions(answers)
	assert.NoError(t, err)
	assert.Len(t, dims, 5)
	for _, d := range AllDimensions() {
		assert.Equal(t, DimensionScore(50), dims[d])
	}
}

func TestComputeDimensions_MirroredItemsInverted(t *testing.T) {
	// Fives everywhere: mirrored items invert to ones, so a dimension with
	// mirrored questions lands below the maximum.
	answers := make(map[ItemID]LikertValue, TotalItems)
	for i := 1; i <= TotalItems; i++ {
		answers[itemID(i)] = 5
	}

	dims, err := ComputeDimensions(answers)
	assert.NoError(t, err)

	// Each dimension has 12 items, 2 of them mirrored: mean is
	// (10*5 + 2*1)/12, scaled to [0,100].
	for _, d := range AllDimensions() {
		assert.Equal(t, DimensionScore(83), dims[d])
	}
}

func TestComputeDimensions_IncompleteBattery(t *testing.T) {
	answers := make(map[ItemID]LikertValue, TotalItems)
	for i := 1; i <= TotalItems; i++ {
		answers[itemID(i)] = 3
	}
	delete(answers, "q17")

	_, err := ComputeDimensions(answers)
	assert.ErrorIs(t, err, shared.ErrIncompleteBattery)
}

func TestNewUserVector(t *testing.T) {
	v, err := NewUserVector(NewUserVectorParams{
		UserID:  "user-a",
		Answers: consistentAnswers(),
	})

	assert.NoError(t, err)
	assert.Equal(t, shared.UserID("user-a"), v.UserID)
	assert.Equal(t, BatteryVersion, v.BatteryVersion)
	assert.True(t, v.Valid)
	assert.Equal(t, 0, v.Contradictions)
	assert.True(t, v.IsComplete())
}

func TestNewUserVector_InconsistentIsKeptButInvalid(t *testing.T) {
	answers := consistentAnswers()
	for _, pair := range MirrorPairs()[:MaxContradictions+1] {
		answers[pair.Positive] = 5
		answers[pair.Negated] = 5
	}

	v, err := NewUserVector(NewUserVectorParams{
		UserID:  "user-a",
		Answers: answers,
	})

	// The snapshot is stored with its contradiction count; validity only
	// controls matching participation.
	assert.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, MaxContradictions+1, v.Contradictions)
}

func TestNewUserVector_Validation(t *testing.T) {
	_, err := NewUserVector(NewUserVectorParams{UserID: "", Answers: consistentAnswers()})
	assert.Error(t, err)

	short := consistentAnswers()
	delete(short, "q60")
	_, err = NewUserVector(NewUserVectorParams{UserID: "user-a", Answers: short})
	assert.ErrorIs(t, err, shared.ErrIncompleteBattery)

	bad := consistentAnswers()
	bad["q30"] = 9
	_, err = NewUserVector(NewUserVectorParams{UserID: "user-a", Answers: bad})
	assert.ErrorIs(t, err, shared.ErrInvalidLikert)
}
