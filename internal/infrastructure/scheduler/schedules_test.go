package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(time.Hour)

	now := time.Date(2026, 2, 12, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, now.Add(time.Hour), s.Next(now))
	assert.Equal(t, "@every 1h0m0s", s.String())
}

func TestWeeklySchedule_SameDayBeforeTime(t *testing.T) {
	s := NewWeeklySchedule(time.Thursday, 18, 0, time.UTC)

	// Thursday morning: the drop is still ahead today.
	thursdayMorning := time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)
	next := s.Next(thursdayMorning)
	assert.Equal(t, time.Date(2026, 2, 12, 18, 0, 0, 0, time.UTC), next)
}

func TestWeeklySchedule_SameDayAfterTime(t *testing.T) {
	s := NewWeeklySchedule(time.Thursday, 18, 0, time.UTC)

	// Thursday evening after the drop: next week's Thursday.
	thursdayEvening := time.Date(2026, 2, 12, 19, 0, 0, 0, time.UTC)
	next := s.Next(thursdayEvening)
	assert.Equal(t, time.Date(2026, 2, 19, 18, 0, 0, 0, time.UTC), next)
}

func TestWeeklySchedule_ExactlyAtTime(t *testing.T) {
	s := NewWeeklySchedule(time.Thursday, 18, 0, time.UTC)

	// At the drop instant itself, the next run is a week out.
	atDrop := time.Date(2026, 2, 12, 18, 0, 0, 0, time.UTC)
	next := s.Next(atDrop)
	assert.Equal(t, time.Date(2026, 2, 19, 18, 0, 0, 0, time.UTC), next)
}

func TestWeeklySchedule_AdvancesToWeekday(t *testing.T) {
	s := NewWeeklySchedule(time.Friday, 18, 0, time.UTC)

	// From a Monday, the next Friday drop is in the same week.
	monday := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	next := s.Next(monday)
	assert.Equal(t, time.Date(2026, 2, 13, 18, 0, 0, 0, time.UTC), next)
	assert.Equal(t, time.Friday, next.Weekday())
}

func TestWeeklySchedule_HonorsLocation(t *testing.T) {
	berlin := time.FixedZone("Europe/Berlin", 60*60)
	s := NewWeeklySchedule(time.Thursday, 18, 0, berlin)

	// 17:30 UTC on Thursday is 18:30 in Berlin - the drop already fired,
	// next run is the following Thursday.
	utcAfternoon := time.Date(2026, 2, 12, 17, 30, 0, 0, time.UTC)
	next := s.Next(utcAfternoon)
	assert.Equal(t, time.Date(2026, 2, 19, 18, 0, 0, 0, berlin), next)
}

func TestNewWeeklySchedule_NilLocationDefaultsToUTC(t *testing.T) {
	s := NewWeeklySchedule(time.Thursday, 18, 0, nil)
	assert.Equal(t, time.UTC, s.Location)
}
