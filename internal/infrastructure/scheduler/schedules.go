package scheduler

import (
	"fmt"
	"time"
)

// IntervalSchedule schedules a job to run at a fixed interval.
// The expiration sweeper runs on one of these.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a new IntervalSchedule.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{
		Interval: interval,
	}
}

// Next returns the next scheduled time.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the string representation of the schedule.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}

// WeeklySchedule schedules a job for a fixed weekday and time of day in a
// given location. The round drops run on these: Thursday and Friday at the
// community drop hour.
type WeeklySchedule struct {
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Location *time.Location
}

// NewWeeklySchedule creates a new WeeklySchedule.
func NewWeeklySchedule(weekday time.Weekday, hour, minute int, loc *time.Location) *WeeklySchedule {
	if loc == nil {
		loc = time.UTC
	}
	return &WeeklySchedule{
		Weekday:  weekday,
		Hour:     hour,
		Minute:   minute,
		Location: loc,
	}
}

// Next returns the next occurrence of the weekday and time after t.
func (s *WeeklySchedule) Next(t time.Time) time.Time {
	local := t.In(s.Location)

	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, s.Location)
	for next.Weekday() != s.Weekday || !next.After(local) {
		next = next.AddDate(0, 0, 1)
		next = time.Date(next.Year(), next.Month(), next.Day(), s.Hour, s.Minute, 0, 0, s.Location)
	}

	return next
}

// String returns the string representation of the schedule.
func (s *WeeklySchedule) String() string {
	return fmt.Sprintf("@weekly %s %02d:%02d %s", s.Weekday, s.Hour, s.Minute, s.Location)
}
