// Package eventhandler содержит обработчики доменных событий.
// Обработчики - "реактивная" часть системы: они подписаны на шину событий
// и запускают побочные эффекты (уведомления пользователям), не влияя на
// исход самих переходов жизненного цикла.
package eventhandler

import (
	"context"
	"log/slog"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// UserNotifier определяет порт доставки уведомлений пользователю.
// Реализуется инфраструктурным слоем (push-шлюз вне зоны ответственности
// движка; в рамках движка - логирующая заглушка).
type UserNotifier interface {
	// NotifyUser доставляет пользователю уведомление указанного вида.
	NotifyUser(ctx context.Context, userID, kind, message string) error
}

// Виды уведомлений.
const (
	NotifyKindNewProposal = "new_proposal"
	NotifyKindMutualMatch = "mutual_match"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROPOSAL CREATED HANDLER
// ═══════════════════════════════════════════════════════════════════════════

// OnProposalCreatedHandler уведомляет пользователя о новом еженедельном
// предложении. Ошибка доставки логируется и не распространяется: предложение
// уже создано, и пользователь увидит его при следующем открытии приложения.
type OnProposalCreatedHandler struct {
	notifier UserNotifier
	logger   *slog.Logger
}

// NewOnProposalCreatedHandler создаёт новый обработчик.
func NewOnProposalCreatedHandler(notifier UserNotifier, logger *slog.Logger) *OnProposalCreatedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnProposalCreatedHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_proposal_created"),
	}
}

// Handle обрабатывает событие создания предложения.
// Реализует интерфейс shared.EventHandler.
func (h *OnProposalCreatedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	created, ok := event.(shared.ProposalCreatedEvent)
	if !ok {
		h.logger.Warn("received non-ProposalCreatedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing proposal created event",
		"proposal_id", created.ProposalID,
		"proposer_id", created.ProposerID,
		"week_key", created.WeekKey,
		"round", created.Round,
	)

	err := h.notifier.NotifyUser(ctx, created.ProposerID, NotifyKindNewProposal,
		"Your weekly match is ready.")
	if err != nil {
		h.logger.Error("failed to notify user about new proposal",
			"proposer_id", created.ProposerID,
			"error", err,
		)
		// Уведомление не критично - ошибку не возвращаем.
	}

	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// ON MUTUAL MATCH HANDLER
// ═══════════════════════════════════════════════════════════════════════════

// OnMutualMatchHandler уведомляет обе стороны о взаимном совпадении.
// Событие публикуется ровно один раз - той транзакцией, которая выполнила
// переход, - поэтому дублей уведомлений не бывает.
type OnMutualMatchHandler struct {
	notifier UserNotifier
	logger   *slog.Logger
}

// NewOnMutualMatchHandler создаёт новый обработчик.
func NewOnMutualMatchHandler(notifier UserNotifier, logger *slog.Logger) *OnMutualMatchHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnMutualMatchHandler{
		notifier: notifier,
		logger:   logger.With("handler", "on_mutual_match"),
	}
}

// Handle обрабатывает событие взаимного совпадения.
// Реализует интерфейс shared.EventHandler.
func (h *OnMutualMatchHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	match, ok := event.(shared.MutualMatchCreatedEvent)
	if !ok {
		h.logger.Warn("received non-MutualMatchCreatedEvent",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing mutual match event",
		"user_a_id", match.UserAID,
		"user_b_id", match.UserBID,
		"week_key", match.WeekKey,
	)

	for _, userID := range []string{match.UserAID, match.UserBID} {
		err := h.notifier.NotifyUser(ctx, userID, NotifyKindMutualMatch,
			"It's a match! Your conversation is open.")
		if err != nil {
			h.logger.Error("failed to notify user about mutual match",
				"user_id", userID,
				"error", err,
			)
		}
	}

	return nil
}
