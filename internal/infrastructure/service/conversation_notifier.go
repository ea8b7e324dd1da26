package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// IDGeneratorImpl implements command.IDGenerator.
type IDGeneratorImpl struct{}

func NewIDGenerator() *IDGeneratorImpl {
	return &IDGeneratorImpl{}
}

func (g *IDGeneratorImpl) GenerateID() string {
	return uuid.New().String()
}

// ConversationNotifierStub implements command.ConversationNotifier.
// The real conversation subsystem lives in a separate service; this stub
// fabricates a channel reference so the accept flow can be exercised
// end-to-end without it. Channel creation is best-effort by contract: the
// mutual match stands even when this call fails.
type ConversationNotifierStub struct {
	logger *slog.Logger
}

func NewConversationNotifierStub(logger *slog.Logger) *ConversationNotifierStub {
	return &ConversationNotifierStub{
		logger: logger,
	}
}

func (s *ConversationNotifierStub) EnsureChannel(ctx context.Context, a, b string, weekKey string) (string, error) {
	ref := "conv-" + uuid.New().String()
	s.logger.Info("stub: ensuring conversation channel",
		"user_a", a,
		"user_b", b,
		"week_key", weekKey,
		"channel_ref", ref,
	)
	return ref, nil
}
