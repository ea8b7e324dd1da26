package matching

import (
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MATCH POLICY
// ══════════════════════════════════════════════════════════════════════════════

// AlgorithmVersion - версия алгоритма подбора, записываемая в каждый батч.
const AlgorithmVersion = "kiko-match-v3"

// MatchPolicy - снимок параметров подбора на момент создания батча.
// Сохраняется вместе с батчем для аудита и отладки: по записи всегда видно,
// с каким порогом и окнами работал генератор.
type MatchPolicy struct {
	// Threshold - минимальная оценка для создания предложения.
	Threshold int `json:"threshold"`

	// CooldownDays - длительность окна охлаждения в днях.
	CooldownDays int `json:"cooldown_days"`

	// ProposalTTLHours - время жизни предложения до истечения.
	ProposalTTLHours int `json:"proposal_ttl_hours"`

	// AlgorithmVersion - версия алгоритма.
	AlgorithmVersion string `json:"algorithm_version"`
}

// DefaultMatchPolicy возвращает параметры подбора по умолчанию.
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{
		Threshold:        DefaultThreshold,
		CooldownDays:     CooldownWindowDays,
		ProposalTTLHours: 48,
		AlgorithmVersion: AlgorithmVersion,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BATCH ENTITY
//
// Батч - единственный якорь идемпотентности генератора: на пару
// (пользователь, ключ раунда) существует не более одного батча. Батч
// создаётся ровно один раз, никогда не обновляется и не удаляется - в том
// числе когда подходящего кандидата не нашлось (пустой батч позволяет
// повторному вызову завершиться без повторной оценки пула).
// ══════════════════════════════════════════════════════════════════════════════

// Batch представляет один запуск генератора для пользователя в раунде.
type Batch struct {
	// ID - уникальный идентификатор (UUID).
	ID string

	// UserID - пользователь, для которого создан батч.
	UserID shared.UserID

	// WeekKey - неделя выпуска.
	WeekKey WeekKey

	// Round - раунд выпуска.
	Round Round

	// RoundKey - ключ идемпотентности (WeekKey + Round).
	RoundKey RoundKey

	// Policy - снимок параметров подбора.
	Policy MatchPolicy

	// CreatedAt - когда создан.
	CreatedAt time.Time
}

// NewBatchParams параметры для создания батча.
type NewBatchParams struct {
	ID      string
	UserID  shared.UserID
	WeekKey WeekKey
	Round   Round
	Policy  MatchPolicy
}

// NewBatch создаёт новый батч.
func NewBatch(params NewBatchParams) (*Batch, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("matching", "NewBatch", shared.ErrInvalidID, "batch id is required")
	}
	if !params.UserID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	if !params.WeekKey.IsValid() {
		return nil, shared.ErrInvalidWeekKey
	}
	if !params.Round.IsValid() {
		return nil, shared.ErrInvalidRound
	}

	return &Batch{
		ID:        params.ID,
		UserID:    params.UserID,
		WeekKey:   params.WeekKey,
		Round:     params.Round,
		RoundKey:  MakeRoundKey(params.WeekKey, params.Round),
		Policy:    params.Policy,
		CreatedAt: time.Now().UTC(),
	}, nil
}
