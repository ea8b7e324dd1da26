package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

func TestWeekKey_IsValid(t *testing.T) {
	assert.True(t, WeekKey("2026-W07").IsValid())
	assert.True(t, WeekKey("2026-W01").IsValid())
	assert.True(t, WeekKey("2026-W53").IsValid())

	assert.False(t, WeekKey("").IsValid())
	assert.False(t, WeekKey("2026-W00").IsValid())
	assert.False(t, WeekKey("2026-W54").IsValid())
	assert.False(t, WeekKey("2026-W7").IsValid())
	assert.False(t, WeekKey("2026W07").IsValid())
	assert.False(t, WeekKey("26-W07").IsValid())
}

func TestNewWeekKey(t *testing.T) {
	w, err := NewWeekKey("2026-W07")
	assert.NoError(t, err)
	assert.Equal(t, WeekKey("2026-W07"), w)

	_, err = NewWeekKey("week-seven")
	assert.ErrorIs(t, err, shared.ErrInvalidWeekKey)
}

func TestWeekKeyFor(t *testing.T) {
	// 2026-02-12 is a Thursday of ISO week 7.
	thursday := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, WeekKey("2026-W07"), WeekKeyFor(thursday))

	// The following Monday starts week 8.
	monday := time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, WeekKey("2026-W08"), WeekKeyFor(monday))
}

func TestNewRound(t *testing.T) {
	r, err := NewRound("thu")
	assert.NoError(t, err)
	assert.True(t, r.IsFirst())
	assert.False(t, r.IsSecond())

	r, err = NewRound("fri")
	assert.NoError(t, err)
	assert.True(t, r.IsSecond())

	_, err = NewRound("sat")
	assert.ErrorIs(t, err, shared.ErrInvalidRound)
}

func TestMakeRoundKey(t *testing.T) {
	key := MakeRoundKey("2026-W07", RoundThursday)
	assert.Equal(t, RoundKey("2026-W07:thu"), key)

	key = MakeRoundKey("2026-W07", RoundFriday)
	assert.Equal(t, RoundKey("2026-W07:fri"), key)
}
