package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeatureFlags_Defaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureRoundSecondChance, nil))
	assert.True(t, ff.IsEnabled(FeatureRoundExpireSweep, nil))
	assert.True(t, ff.IsEnabled(FeatureNotifyNewProposal, nil))
	assert.True(t, ff.IsEnabled(FeatureCacheVectors, nil))

	// Unknown flags are off, never an error.
	assert.False(t, ff.IsEnabled("round.third_chance", nil))
}

func TestFeatureFlags_EnvOverride(t *testing.T) {
	t.Setenv("FEATURE_ROUND_SECOND_CHANCE", "false")
	t.Setenv("FEATURE_NOTIFY_MUTUAL_MATCH", "25")

	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureRoundSecondChance, nil))

	mutual := ff.GetAllFeatures()[FeatureNotifyMutualMatch]
	assert.True(t, mutual.Enabled)
	assert.Equal(t, 25, mutual.RolloutPercent)
}

func TestFeatureFlags_UserOverride(t *testing.T) {
	ff := LoadFeatureFlags()
	ctx := &FeatureContext{UserID: "user-a"}

	ff.SetUserOverride("user-a", FeatureRoundSecondChance, false)
	assert.False(t, ff.IsEnabled(FeatureRoundSecondChance, ctx))

	// Other users are unaffected.
	assert.True(t, ff.IsEnabled(FeatureRoundSecondChance, &FeatureContext{UserID: "user-b"}))

	ff.ClearUserOverrides("user-a")
	assert.True(t, ff.IsEnabled(FeatureRoundSecondChance, ctx))
}

func TestFeatureFlags_RolloutIsConsistent(t *testing.T) {
	ff := LoadFeatureFlags()
	assert.NoError(t, ff.SetRolloutPercent(FeatureCacheVectors, 50))

	ctx := &FeatureContext{UserID: "user-a"}
	first := ff.IsEnabled(FeatureCacheVectors, ctx)

	// The bucket assignment never flaps for the same user.
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureCacheVectors, ctx))
	}
}

func TestFeatureFlags_AdminSeesEverything(t *testing.T) {
	ff := LoadFeatureFlags()
	assert.NoError(t, ff.DisableFeature(FeatureNotifyNewProposal))

	assert.True(t, ff.IsEnabled(FeatureNotifyNewProposal, &FeatureContext{UserID: "admin", IsAdmin: true}))
	assert.False(t, ff.IsEnabled(FeatureNotifyNewProposal, &FeatureContext{UserID: "user-a"}))
}

func TestFeatureFlags_SetRolloutPercent(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.ErrorIs(t, ff.SetRolloutPercent("unknown.flag", 50), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureCacheVectors, 120), ErrInvalidRolloutPercent)

	assert.NoError(t, ff.DisableFeature(FeatureCacheVectors))
	assert.False(t, ff.IsEnabled(FeatureCacheVectors, nil))
	assert.NoError(t, ff.EnableFeature(FeatureCacheVectors))
	assert.True(t, ff.IsEnabled(FeatureCacheVectors, nil))
}
