package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kiko-app/kiko-matching/internal/domain/profile"
)

// vec builds a valid vector with the given dimension values, in the
// canonical dimension order.
func vec(socialEnergy, openness, structure, stability, independence int) *profile.UserVector {
	return &profile.UserVector{
		Valid: true,
		Dimensions: map[profile.Dimension]profile.DimensionScore{
			profile.DimensionSocialEnergy:       profile.DimensionScore(socialEnergy),
			profile.DimensionOpenness:           profile.DimensionScore(openness),
			profile.DimensionStructure:          profile.DimensionScore(structure),
			profile.DimensionEmotionalStability: profile.DimensionScore(stability),
			profile.DimensionIndependence:       profile.DimensionScore(independence),
		},
	}
}

func TestScore_IdenticalVectors(t *testing.T) {
	a := vec(50, 50, 50, 50, 50)
	b := vec(50, 50, 50, 50, 50)

	result := Score(a, b)
	assert.Equal(t, MatchScore(100), result.Score)
}

func TestScore_Symmetric(t *testing.T) {
	a := vec(80, 20, 55, 90, 10)
	b := vec(30, 70, 45, 25, 60)

	ab := Score(a, b)
	ba := Score(b, a)
	assert.Equal(t, ab.Score, ba.Score)
	assert.Equal(t, ab.Reasons, ba.Reasons)
}

func TestScore_AlwaysInRange(t *testing.T) {
	a := vec(0, 0, 0, 0, 0)
	b := vec(100, 100, 100, 100, 100)

	result := Score(a, b)
	assert.True(t, result.Score.IsValid())
	assert.Equal(t, MatchScore(0), result.Score)
}

func TestScore_InvalidVector(t *testing.T) {
	valid := vec(50, 50, 50, 50, 50)
	invalid := vec(50, 50, 50, 50, 50)
	invalid.Valid = false

	result := Score(valid, invalid)
	assert.Equal(t, MatchScore(0), result.Score)
	assert.Equal(t, []string{reasonInvalidVector}, result.Reasons)

	// Same short-circuit for a missing vector.
	result = Score(nil, valid)
	assert.Equal(t, MatchScore(0), result.Score)
	assert.Equal(t, []string{reasonInvalidVector}, result.Reasons)
}

func TestScore_VolatilityPenalty(t *testing.T) {
	// Both in the low stability band: closeness 100 on that dimension
	// is discounted to 80, pulling the total from 100 to 96.
	a := vec(50, 50, 50, 30, 50)
	b := vec(50, 50, 50, 30, 50)

	result := Score(a, b)
	assert.Equal(t, MatchScore(96), result.Score)

	// One side above the band: no penalty applies.
	c := vec(50, 50, 50, 40, 50)
	d := vec(50, 50, 50, 36, 50)
	result = Score(c, d)
	assert.Equal(t, MatchScore(99), result.Score)
}

func TestScore_HighBandReason(t *testing.T) {
	a := vec(90, 50, 50, 50, 50)
	b := vec(85, 50, 50, 50, 50)

	result := Score(a, b)
	assert.Contains(t, result.Reasons, dimensionReasons[profile.DimensionSocialEnergy].high)
}

func TestScore_LowBandReason(t *testing.T) {
	a := vec(50, 50, 50, 50, 20)
	b := vec(50, 50, 50, 50, 25)

	result := Score(a, b)
	assert.Contains(t, result.Reasons, dimensionReasons[profile.DimensionIndependence].low)
}

func TestScore_NoReasonForWideGap(t *testing.T) {
	// Both sides high on openness, but the gap is too wide for a reason.
	a := vec(50, 100, 50, 50, 50)
	b := vec(50, 80, 50, 50, 50)

	result := Score(a, b)
	assert.NotContains(t, result.Reasons, dimensionReasons[profile.DimensionOpenness].high)
}

func TestScore_ReasonsCappedAtThree(t *testing.T) {
	// Every dimension qualifies for a high-band reason, only the first
	// three (canonical dimension order) survive.
	a := vec(80, 80, 80, 80, 80)
	b := vec(80, 80, 80, 80, 80)

	result := Score(a, b)
	assert.Equal(t, []string{
		dimensionReasons[profile.DimensionSocialEnergy].high,
		dimensionReasons[profile.DimensionOpenness].high,
		dimensionReasons[profile.DimensionStructure].high,
	}, result.Reasons)
}

func TestScore_GenericReasonForHighScore(t *testing.T) {
	// Close values in the mid band: high score, no dimension reasons.
	a := vec(50, 50, 50, 50, 50)
	b := vec(60, 60, 60, 60, 60)

	result := Score(a, b)
	assert.Equal(t, MatchScore(90), result.Score)
	assert.Equal(t, []string{reasonGenericHigh}, result.Reasons)
}

func TestScore_NoReasonsBelowThreshold(t *testing.T) {
	a := vec(40, 40, 40, 40, 40)
	b := vec(70, 70, 70, 70, 70)

	result := Score(a, b)
	assert.Equal(t, MatchScore(70), result.Score)
	assert.Empty(t, result.Reasons)
}

func TestMatchScore_Meets(t *testing.T) {
	assert.True(t, MatchScore(80).Meets(DefaultThreshold))
	assert.True(t, MatchScore(95).Meets(DefaultThreshold))
	assert.False(t, MatchScore(79).Meets(DefaultThreshold))
}
