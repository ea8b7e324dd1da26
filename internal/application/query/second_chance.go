// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SECOND CHANCE ELIGIBILITY QUERY
// Решает, имеет ли пользователь право на пятничный выпуск "второго шанса".
// Право есть только у того, кто принял четверговое предложение, но не
// получил взаимности - и чья зеркальная сторона сама ещё не сказала "да"
// (такая пара должна разрешиться через взаимный переход, а не получать
// новых кандидатов). Проверка выполняется по одному пользователю: нужны
// оба направления конкретной пары.
// ══════════════════════════════════════════════════════════════════════════════

// SecondChanceEligibilityQuery содержит параметры проверки.
type SecondChanceEligibilityQuery struct {
	// UserID - проверяемый пользователь.
	UserID string

	// WeekKey - неделя выпуска.
	WeekKey matching.WeekKey
}

// Validate проверяет корректность параметров запроса.
func (q *SecondChanceEligibilityQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("second_chance: user_id is required")
	}
	if !q.WeekKey.IsValid() {
		return errors.New("second_chance: invalid week key")
	}
	return nil
}

// SecondChanceEligibilityDTO - итог проверки с объяснением.
type SecondChanceEligibilityDTO struct {
	// Eligible - имеет ли пользователь право на второй раунд.
	Eligible bool `json:"eligible"`

	// Reason - машинно-читаемое объяснение решения.
	Reason string `json:"reason"`
}

// Причины отказа/допуска.
const (
	ReasonEligible             = "accepted_without_mutual"
	ReasonNoFirstRoundProposal = "no_first_round_proposal"
	ReasonNotAccepted          = "first_round_not_accepted"
	ReasonMirrorAccepted       = "mirror_already_accepted"
)

// SecondChanceEligibilityHandler обрабатывает проверку права на второй раунд.
type SecondChanceEligibilityHandler struct {
	matchRepo matching.Repository
}

// NewSecondChanceEligibilityHandler создаёт новый обработчик.
func NewSecondChanceEligibilityHandler(matchRepo matching.Repository) *SecondChanceEligibilityHandler {
	return &SecondChanceEligibilityHandler{matchRepo: matchRepo}
}

// Handle выполняет проверку.
func (h *SecondChanceEligibilityHandler) Handle(ctx context.Context, q SecondChanceEligibilityQuery) (*SecondChanceEligibilityDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("matching", "SecondChance", shared.ErrValidation, "validation failed", err)
	}

	userID := shared.UserID(q.UserID)

	// (a) Четверговое предложение должно существовать.
	first, err := h.matchRepo.Proposals().GetByProposerAndRound(ctx, userID, q.WeekKey, matching.RoundThursday)
	if err != nil {
		if shared.IsNotFound(err) {
			return &SecondChanceEligibilityDTO{Eligible: false, Reason: ReasonNoFirstRoundProposal}, nil
		}
		return nil, shared.WrapError("matching", "SecondChance", shared.ErrInternal, "proposal lookup failed", err)
	}

	// (b) Статус - ровно accepted. mutual_accepted - уже успех, второй шанс
	// не нужен; pending/rejected/expired - пользователь не проявил согласия.
	if first.Status != matching.ProposalStatusAccepted {
		return &SecondChanceEligibilityDTO{Eligible: false, Reason: ReasonNotAccepted}, nil
	}

	// (c) Зеркальное предложение (кандидат -> пользователь) не должно быть
	// принято: иначе пара разрешается через взаимный путь. Поиск зеркала
	// идёт по всей неделе без привязки к раунду - так же, как при
	// определении взаимного совпадения.
	mirror, err := h.matchRepo.Proposals().GetMirror(ctx, userID, first.CandidateID, q.WeekKey)
	if err != nil {
		if shared.IsNotFound(err) {
			return &SecondChanceEligibilityDTO{Eligible: true, Reason: ReasonEligible}, nil
		}
		return nil, shared.WrapError("matching", "SecondChance", shared.ErrInternal, "mirror lookup failed", err)
	}

	if mirror.Status == matching.ProposalStatusAccepted || mirror.Status == matching.ProposalStatusMutualAccepted {
		return &SecondChanceEligibilityDTO{Eligible: false, Reason: ReasonMirrorAccepted}, nil
	}

	return &SecondChanceEligibilityDTO{Eligible: true, Reason: ReasonEligible}, nil
}
