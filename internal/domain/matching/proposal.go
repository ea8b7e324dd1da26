package matching

import (
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROPOSAL STATE MACHINE
//
//	pending ──► accepted ──► mutual_accepted
//	   │  └───► rejected
//	   └──────► expired            (по времени, см. Expiration Sweeper)
//
// accepted, rejected и expired терминальны для предложения, с одним
// исключением: accepted может перейти в mutual_accepted, когда зеркальное
// предложение той же недели тоже принято. mutual_accepted "терминальнее"
// остальных: любой повторный ответ на него - no-op с успехом.
// ══════════════════════════════════════════════════════════════════════════════

// ProposalStatus определяет статус предложения.
type ProposalStatus string

const (
	// ProposalStatusPending - ожидает ответа инициатора.
	ProposalStatusPending ProposalStatus = "pending"

	// ProposalStatusAccepted - инициатор принял, взаимности пока нет.
	ProposalStatusAccepted ProposalStatus = "accepted"

	// ProposalStatusRejected - инициатор отклонил.
	ProposalStatusRejected ProposalStatus = "rejected"

	// ProposalStatusExpired - истекло время ответа.
	ProposalStatusExpired ProposalStatus = "expired"

	// ProposalStatusMutualAccepted - обе стороны приняли друг друга.
	ProposalStatusMutualAccepted ProposalStatus = "mutual_accepted"
)

// IsValid проверяет корректность статуса.
func (s ProposalStatus) IsValid() bool {
	switch s {
	case ProposalStatusPending, ProposalStatusAccepted, ProposalStatusRejected,
		ProposalStatusExpired, ProposalStatusMutualAccepted:
		return true
	default:
		return false
	}
}

// IsPending возвращает true, если предложение ожидает ответа.
func (s ProposalStatus) IsPending() bool {
	return s == ProposalStatusPending
}

// IsTerminal возвращает true, если из статуса нет переходов по ответу
// пользователя. accepted не терминален: его может довершить взаимный переход.
func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalStatusRejected || s == ProposalStatusExpired ||
		s == ProposalStatusMutualAccepted
}

// String возвращает строковое представление.
func (s ProposalStatus) String() string {
	return string(s)
}

// ResponseAction представляет действие пользователя над предложением.
type ResponseAction string

const (
	// ActionAccept - принять предложение.
	ActionAccept ResponseAction = "accept"

	// ActionReject - отклонить предложение.
	ActionReject ResponseAction = "reject"
)

// IsValid проверяет корректность действия.
func (a ResponseAction) IsValid() bool {
	return a == ActionAccept || a == ActionReject
}

// ══════════════════════════════════════════════════════════════════════════════
// PROPOSAL ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Proposal представляет направленное предложение пары: инициатор -> кандидат.
// Обратное направление, если существует, - отдельная запись. Предложение
// всегда дитя ровно одного батча; не более одного предложения на батч.
type Proposal struct {
	// ID - уникальный идентификатор (UUID).
	ID string

	// BatchID - батч, породивший предложение.
	BatchID string

	// ProposerID - кому предложен кандидат (владелец решения).
	ProposerID shared.UserID

	// CandidateID - предложенный кандидат.
	CandidateID shared.UserID

	// WeekKey - неделя выпуска.
	WeekKey WeekKey

	// Round - раунд выпуска.
	Round Round

	// Score - оценка совместимости (0-100).
	Score MatchScore

	// Reasons - человекочитаемые причины (не более трёх).
	Reasons []string

	// Rank - позиция в выдаче. В текущем дизайне всегда 1:
	// пользователю показывается единственный лучший кандидат.
	Rank int

	// Status - статус предложения.
	Status ProposalStatus

	// RejectReason - необязательная причина отклонения.
	RejectReason string

	// CreatedAt - когда создано.
	CreatedAt time.Time

	// ActedAt - когда получен ответ или сработало истечение (nil, пока
	// предложение в ожидании).
	ActedAt *time.Time
}

// NewProposalParams параметры для создания предложения.
type NewProposalParams struct {
	ID          string
	BatchID     string
	ProposerID  shared.UserID
	CandidateID shared.UserID
	WeekKey     WeekKey
	Round       Round
	Score       MatchScore
	Reasons     []string
}

// NewProposal создаёт новое предложение в статусе pending.
func NewProposal(params NewProposalParams) (*Proposal, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("matching", "NewProposal", shared.ErrInvalidID, "proposal id is required")
	}
	if params.BatchID == "" {
		return nil, shared.NewDomainError("matching", "NewProposal", shared.ErrInvalidID, "batch id is required")
	}
	if !params.ProposerID.IsValid() || !params.CandidateID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if params.ProposerID == params.CandidateID {
		return nil, shared.NewDomainError("matching", "NewProposal", shared.ErrInvalidInput, "proposer and candidate cannot be the same")
	}
	if !params.WeekKey.IsValid() {
		return nil, shared.ErrInvalidWeekKey
	}
	if !params.Round.IsValid() {
		return nil, shared.ErrInvalidRound
	}
	if !params.Score.IsValid() {
		return nil, shared.ErrInvalidScore
	}

	return &Proposal{
		ID:          params.ID,
		BatchID:     params.BatchID,
		ProposerID:  params.ProposerID,
		CandidateID: params.CandidateID,
		WeekKey:     params.WeekKey,
		Round:       params.Round,
		Score:       params.Score,
		Reasons:     params.Reasons,
		Rank:        1,
		Status:      ProposalStatusPending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// ValidateResponse проверяет допустимость ответа над текущим статусом.
// Возвращает noop=true, когда ответ следует принять как успех без изменения
// состояния: повтор того же действия или любой ответ на mutual_accepted.
func (p *Proposal) ValidateResponse(action ResponseAction) (noop bool, err error) {
	if !action.IsValid() {
		return false, shared.ErrInvalidAction
	}

	switch p.Status {
	case ProposalStatusPending:
		return false, nil
	case ProposalStatusMutualAccepted:
		// Взаимный матч "терминальнее" accept/reject: повторный ответ
		// любой стороны - безопасный no-op.
		return true, nil
	case ProposalStatusAccepted:
		if action == ActionAccept {
			return true, nil
		}
		return false, shared.ErrProposalTerminal
	case ProposalStatusRejected:
		if action == ActionReject {
			return true, nil
		}
		return false, shared.ErrProposalTerminal
	case ProposalStatusExpired:
		return false, shared.ErrProposalTerminal
	default:
		return false, shared.ErrInvalidState
	}
}

// Accept переводит предложение в accepted.
func (p *Proposal) Accept() error {
	if p.Status != ProposalStatusPending {
		return shared.ErrProposalTerminal
	}
	now := time.Now().UTC()
	p.Status = ProposalStatusAccepted
	p.ActedAt = &now
	return nil
}

// Reject переводит предложение в rejected с необязательной причиной.
func (p *Proposal) Reject(reason string) error {
	if p.Status != ProposalStatusPending {
		return shared.ErrProposalTerminal
	}
	now := time.Now().UTC()
	p.Status = ProposalStatusRejected
	p.RejectReason = reason
	p.ActedAt = &now
	return nil
}

// MarkMutual переводит предложение во взаимный матч. Допустимо из
// pending (сторона принимает и сразу обнаруживает зеркальный accept) и
// из accepted (зеркальная сторона довершает переход).
func (p *Proposal) MarkMutual() error {
	if p.Status != ProposalStatusPending && p.Status != ProposalStatusAccepted {
		return shared.ErrProposalTerminal
	}
	now := time.Now().UTC()
	p.Status = ProposalStatusMutualAccepted
	p.ActedAt = &now
	return nil
}

// MarkExpired переводит зависшее предложение в expired.
func (p *Proposal) MarkExpired() error {
	if p.Status != ProposalStatusPending {
		return shared.ErrProposalTerminal
	}
	now := time.Now().UTC()
	p.Status = ProposalStatusExpired
	p.ActedAt = &now
	return nil
}

// IsOwnedBy проверяет, принадлежит ли решение по предложению пользователю.
// Отвечать на предложение может только его инициатор.
func (p *Proposal) IsOwnedBy(userID shared.UserID) bool {
	return p.ProposerID == userID
}
