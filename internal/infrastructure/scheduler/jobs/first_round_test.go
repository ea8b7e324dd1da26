package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

type fakeRunLock struct {
	denied   bool
	acquired []string
	released []string
}

func (l *fakeRunLock) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	if l.denied {
		return false, nil
	}
	l.acquired = append(l.acquired, key)
	return true, nil
}

func (l *fakeRunLock) Release(_ context.Context, key string) error {
	l.released = append(l.released, key)
	return nil
}

type fakeEventSink struct {
	events []shared.Event
}

func (s *fakeEventSink) Publish(event shared.Event) error {
	s.events = append(s.events, event)
	return nil
}

func jobsTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunRound_PublishesCompletionEvent(t *testing.T) {
	lock := &fakeRunLock{}
	sink := &fakeEventSink{}
	week := matching.WeekKey("2026-W07")

	err := runRound(context.Background(), jobsTestLogger(), lock, sink, week, matching.RoundThursday,
		func(_ context.Context) (roundStats, error) {
			return roundStats{generated: 5, empty: 2, skipped: 1, failed: 1}, nil
		})

	assert.NoError(t, err)
	assert.Len(t, sink.events, 1)

	event, ok := sink.events[0].(shared.RoundCompletedEvent)
	assert.True(t, ok)
	assert.Equal(t, shared.EventRoundCompleted, event.EventType())
	assert.Equal(t, "2026-W07", event.WeekKey)
	assert.Equal(t, "thu", event.Round)
	assert.Equal(t, 5, event.MatchedCount)
	assert.Equal(t, 2, event.NoMatchCount)
	assert.Equal(t, 1, event.FailedCount)

	// The lock covers the whole run.
	assert.Equal(t, []string{"2026-W07:thu"}, lock.acquired)
	assert.Equal(t, []string{"2026-W07:thu"}, lock.released)
}

func TestRunRound_NoEventWhenLockDenied(t *testing.T) {
	lock := &fakeRunLock{denied: true}
	sink := &fakeEventSink{}
	ran := false

	err := runRound(context.Background(), jobsTestLogger(), lock, sink, matching.WeekKey("2026-W07"), matching.RoundThursday,
		func(_ context.Context) (roundStats, error) {
			ran = true
			return roundStats{}, nil
		})

	// Another instance holds the round; skipping is not an error.
	assert.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, sink.events)
}

func TestRunRound_NoEventOnBodyFailure(t *testing.T) {
	sink := &fakeEventSink{}
	bodyErr := errors.New("user listing unavailable")

	err := runRound(context.Background(), jobsTestLogger(), nil, sink, matching.WeekKey("2026-W07"), matching.RoundFriday,
		func(_ context.Context) (roundStats, error) {
			return roundStats{}, bodyErr
		})

	assert.ErrorIs(t, err, bodyErr)
	assert.Empty(t, sink.events)
}

func TestRunRound_NilPublisher(t *testing.T) {
	err := runRound(context.Background(), jobsTestLogger(), nil, nil, matching.WeekKey("2026-W07"), matching.RoundThursday,
		func(_ context.Context) (roundStats, error) {
			return roundStats{generated: 1}, nil
		})
	assert.NoError(t, err)
}
