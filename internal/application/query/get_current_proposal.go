package query

import (
	"context"
	"errors"
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CURRENT PROPOSAL QUERY
// Возвращает "моё актуальное предложение этой недели" для пользовательского
// интерфейса. Приоритет повторяет логику раундов: взаимный матч любого
// раунда важнее всего; затем пятничное предложение, если оно есть; затем
// четверговое.
// ══════════════════════════════════════════════════════════════════════════════

// GetCurrentProposalQuery содержит параметры запроса.
type GetCurrentProposalQuery struct {
	// UserID - чьё предложение показываем.
	UserID string

	// WeekKey - неделя (пустая = текущая).
	WeekKey matching.WeekKey
}

// Validate проверяет корректность параметров запроса.
func (q *GetCurrentProposalQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("get_current_proposal: user_id is required")
	}
	if q.WeekKey == "" {
		q.WeekKey = matching.CurrentWeekKey()
	}
	if !q.WeekKey.IsValid() {
		return errors.New("get_current_proposal: invalid week key")
	}
	return nil
}

// ProposalDTO - представление предложения для пользовательского кода.
type ProposalDTO struct {
	// ID - идентификатор предложения.
	ID string `json:"id"`

	// CandidateID - предложенный кандидат.
	CandidateID string `json:"candidate_id"`

	// WeekKey - неделя выпуска.
	WeekKey string `json:"week_key"`

	// Round - раунд выпуска.
	Round string `json:"round"`

	// Score - оценка совместимости (0-100).
	Score int `json:"score"`

	// Reasons - человекочитаемые причины (не более трёх).
	Reasons []string `json:"reasons"`

	// Status - статус предложения.
	Status string `json:"status"`

	// CreatedAt - когда создано.
	CreatedAt time.Time `json:"created_at"`

	// ActedAt - когда получен ответ (nil, пока в ожидании).
	ActedAt *time.Time `json:"acted_at,omitempty"`
}

// GetCurrentProposalHandler обрабатывает запрос актуального предложения.
type GetCurrentProposalHandler struct {
	matchRepo matching.Repository
}

// NewGetCurrentProposalHandler создаёт новый обработчик.
func NewGetCurrentProposalHandler(matchRepo matching.Repository) *GetCurrentProposalHandler {
	return &GetCurrentProposalHandler{matchRepo: matchRepo}
}

// Handle выполняет запрос. Возвращает nil без ошибки, если предложений на
// этой неделе нет.
func (h *GetCurrentProposalHandler) Handle(ctx context.Context, q GetCurrentProposalQuery) (*ProposalDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("matching", "GetCurrent", shared.ErrValidation, "validation failed", err)
	}

	userID := shared.UserID(q.UserID)

	thursday, err := h.loadProposal(ctx, userID, q.WeekKey, matching.RoundThursday)
	if err != nil {
		return nil, err
	}
	friday, err := h.loadProposal(ctx, userID, q.WeekKey, matching.RoundFriday)
	if err != nil {
		return nil, err
	}

	// Взаимный матч любого раунда показывается всегда.
	if thursday != nil && thursday.Status == matching.ProposalStatusMutualAccepted {
		return toProposalDTO(thursday), nil
	}
	if friday != nil && friday.Status == matching.ProposalStatusMutualAccepted {
		return toProposalDTO(friday), nil
	}

	// Пятничное предложение, если оно существует, вытесняет четверговое.
	if friday != nil {
		return toProposalDTO(friday), nil
	}
	if thursday != nil {
		return toProposalDTO(thursday), nil
	}
	return nil, nil
}

func (h *GetCurrentProposalHandler) loadProposal(ctx context.Context, userID shared.UserID, week matching.WeekKey, round matching.Round) (*matching.Proposal, error) {
	p, err := h.matchRepo.Proposals().GetByProposerAndRound(ctx, userID, week, round)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, shared.WrapError("matching", "GetCurrent", shared.ErrInternal, "proposal lookup failed", err)
	}
	return p, nil
}

func toProposalDTO(p *matching.Proposal) *ProposalDTO {
	return &ProposalDTO{
		ID:          p.ID,
		CandidateID: p.CandidateID.String(),
		WeekKey:     p.WeekKey.String(),
		Round:       p.Round.String(),
		Score:       p.Score.Int(),
		Reasons:     p.Reasons,
		Status:      p.Status.String(),
		CreatedAt:   p.CreatedAt,
		ActedAt:     p.ActedAt,
	}
}
