package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// consistentAnswers builds a full battery where every mirror pair sums to the
// expected value and all remaining items are neutral.
func consistentAnswers() map[ItemID]LikertValue {
	answers := make(map[ItemID]LikertValue, TotalItems)
	for i := 1; i <= TotalItems; i++ {
		answers[itemID(i)] = 3
	}
	for _, pair := range MirrorPairs() {
		answers[pair.Positive] = 4
		answers[pair.Negated] = 2
	}
	return answers
}

func TestPairInconsistency(t *testing.T) {
	// A pair summing exactly to the expected value has zero deviation.
	assert.Equal(t, 0, PairInconsistency(4, 2))
	assert.Equal(t, 0, PairInconsistency(3, 3))

	// Deviation is absolute, in both directions.
	assert.Equal(t, 2, PairInconsistency(5, 3))
	assert.Equal(t, 2, PairInconsistency(1, 3))

	// "Straight-line" filling: fives on both sides of the mirror.
	assert.Equal(t, 4, PairInconsistency(5, 5))
	assert.Equal(t, 4, PairInconsistency(1, 1))
}

func TestContradictionCount_ConsistentBattery(t *testing.T) {
	answers := consistentAnswers()
	assert.Equal(t, 0, ContradictionCount(answers))
	assert.True(t, IsConsistent(answers))
}

func TestContradictionCount_DeviationBelowThreshold(t *testing.T) {
	answers := consistentAnswers()

	// Deviation of 2 is below the contradiction threshold.
	pair := MirrorPairs()[0]
	answers[pair.Positive] = 5
	answers[pair.Negated] = 3

	assert.Equal(t, 0, ContradictionCount(answers))
}

func TestContradictionCount_CountsContradictions(t *testing.T) {
	answers := consistentAnswers()

	pairs := MirrorPairs()
	for _, pair := range pairs[:2] {
		answers[pair.Positive] = 5
		answers[pair.Negated] = 4 // sum 9, deviation 3
	}

	assert.Equal(t, 2, ContradictionCount(answers))
}

func TestIsConsistent_BoundaryAtMaxContradictions(t *testing.T) {
	answers := consistentAnswers()
	pairs := MirrorPairs()

	// Exactly MaxContradictions is still acceptable.
	for _, pair := range pairs[:MaxContradictions] {
		answers[pair.Positive] = 5
		answers[pair.Negated] = 5
	}
	assert.Equal(t, MaxContradictions, ContradictionCount(answers))
	assert.True(t, IsConsistent(answers))

	// One more flips the battery to inconsistent.
	extra := pairs[MaxContradictions]
	answers[extra.Positive] = 5
	answers[extra.Negated] = 5
	assert.Equal(t, MaxContradictions+1, ContradictionCount(answers))
	assert.False(t, IsConsistent(answers))
}

func TestContradictionCount_IgnoresIncompletePairs(t *testing.T) {
	answers := consistentAnswers()

	// A blatantly contradictory pair missing one answer does not count.
	pair := MirrorPairs()[0]
	answers[pair.Positive] = 5
	delete(answers, pair.Negated)

	assert.Equal(t, 0, ContradictionCount(answers))
}

func TestMirrorPairs_ReturnsCopy(t *testing.T) {
	pairs := MirrorPairs()
	assert.Len(t, pairs, 10)

	pairs[0].Positive = "q99"
	assert.Equal(t, ItemID("q01"), MirrorPairs()[0].Positive)
}
