package service

import (
	"context"
	"log/slog"
)

// UserNotifierStub implements eventhandler.UserNotifier.
// Push delivery is owned by a separate gateway service; the stub logs the
// notification so the event flow is observable in development.
type UserNotifierStub struct {
	logger *slog.Logger
}

func NewUserNotifierStub(logger *slog.Logger) *UserNotifierStub {
	return &UserNotifierStub{
		logger: logger,
	}
}

func (s *UserNotifierStub) NotifyUser(ctx context.Context, userID, kind, message string) error {
	s.logger.Info("stub: notifying user",
		"user_id", userID,
		"kind", kind,
		"message", message,
	)
	return nil
}
