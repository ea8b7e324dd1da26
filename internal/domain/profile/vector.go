// Package profile содержит психометрический снимок пользователя Kiko.
// Анкета и хранение сырых ответов принадлежат внешней подсистеме профиля;
// движок подбора получает готовый вектор и проверяет его на согласованность.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package profile

import (
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DIMENSIONS
//
// Пять измерений батареи Kiko. Совместимость по каждому измерению - это
// близость значений, а не их "качество": два одинаково низких значения
// совместимы так же, как два одинаково высоких (см. matching.Score).
// ══════════════════════════════════════════════════════════════════════════════

// Dimension представляет одно из пяти измерений батареи.
type Dimension string

const (
	// DimensionSocialEnergy - социальная энергия (экстраверсия/интроверсия).
	DimensionSocialEnergy Dimension = "social_energy"

	// DimensionOpenness - открытость новому опыту.
	DimensionOpenness Dimension = "openness"

	// DimensionStructure - потребность в порядке и структуре.
	DimensionStructure Dimension = "structure"

	// DimensionEmotionalStability - эмоциональная устойчивость.
	// Единственное измерение со штрафом: двое с низкой устойчивостью
	// вместе хуже, чем предсказывает одна близость значений.
	DimensionEmotionalStability Dimension = "emotional_stability"

	// DimensionIndependence - потребность в личной автономии.
	// Совместимы и двое "одиночек", и двое "неразлучных".
	DimensionIndependence Dimension = "independence"
)

// AllDimensions возвращает все измерения в каноническом порядке.
// Порядок фиксирован: от него зависит порядок причин в ScoreResult.
func AllDimensions() []Dimension {
	return []Dimension{
		DimensionSocialEnergy,
		DimensionOpenness,
		DimensionStructure,
		DimensionEmotionalStability,
		DimensionIndependence,
	}
}

// IsValid проверяет корректность измерения.
func (d Dimension) IsValid() bool {
	switch d {
	case DimensionSocialEnergy, DimensionOpenness, DimensionStructure,
		DimensionEmotionalStability, DimensionIndependence:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление.
func (d Dimension) String() string {
	return string(d)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIKERT BATTERY
// ══════════════════════════════════════════════════════════════════════════════

// ItemID представляет идентификатор вопроса батареи ("q01".."q60").
type ItemID string

// LikertValue представляет ответ по шкале Ликерта (1-5).
type LikertValue int

// IsValid проверяет, что значение в допустимом диапазоне.
func (v LikertValue) IsValid() bool {
	return v >= 1 && v <= 5
}

// BatteryVersion - версия батареи вопросов, к которой относится вектор.
const BatteryVersion = "kiko-battery-v2"

const (
	// ItemsPerDimension - количество вопросов на измерение.
	ItemsPerDimension = 12

	// TotalItems - общее количество вопросов батареи.
	TotalItems = 60
)

// DimensionScore представляет значение измерения (0-100).
type DimensionScore int

// IsValid проверяет диапазон значения.
func (s DimensionScore) IsValid() bool {
	return s >= 0 && s <= 100
}

// Int возвращает целочисленное значение.
func (s DimensionScore) Int() int {
	return int(s)
}

// ══════════════════════════════════════════════════════════════════════════════
// USER VECTOR
// ══════════════════════════════════════════════════════════════════════════════

// UserVector - психометрический снимок пользователя: сырые ответы батареи,
// именованные одиночные и множественные ответы анкеты и пять значений
// измерений. Движок подбора читает вектор, но никогда не изменяет его.
type UserVector struct {
	// UserID - владелец вектора.
	UserID shared.UserID

	// BatteryVersion - версия батареи, по которой собраны ответы.
	BatteryVersion string

	// Answers - сырые ответы батареи (60 вопросов по шкале 1-5).
	Answers map[ItemID]LikertValue

	// SingleChoice - именованные одиночные ответы анкеты (напр. "smoking").
	SingleChoice map[string]string

	// MultiChoice - именованные множественные ответы (напр. "languages").
	MultiChoice map[string][]string

	// Dimensions - пять значений измерений (0-100).
	Dimensions map[Dimension]DimensionScore

	// Valid - прошёл ли вектор проверку согласованности (см. consistency.go).
	// Невалидный вектор исключается из подбора полностью: ни как инициатор,
	// ни как кандидат.
	Valid bool

	// Contradictions - количество противоречий по зеркальным парам.
	Contradictions int

	// CapturedAt - когда снят снимок.
	CapturedAt time.Time
}

// HasDimension проверяет наличие значения по измерению.
func (v *UserVector) HasDimension(d Dimension) bool {
	_, ok := v.Dimensions[d]
	return ok
}

// DimensionValue возвращает значение измерения (0, если отсутствует).
func (v *UserVector) DimensionValue(d Dimension) int {
	return int(v.Dimensions[d])
}

// IsComplete проверяет, что вектор содержит все пять измерений.
func (v *UserVector) IsComplete() bool {
	for _, d := range AllDimensions() {
		if !v.HasDimension(d) {
			return false
		}
	}
	return true
}

// NewUserVectorParams параметры для создания вектора.
type NewUserVectorParams struct {
	UserID       string
	Answers      map[ItemID]LikertValue
	SingleChoice map[string]string
	MultiChoice  map[string][]string
}

// NewUserVector создаёт вектор из сырых ответов батареи: вычисляет значения
// измерений и прогоняет проверку согласованности.
func NewUserVector(params NewUserVectorParams) (*UserVector, error) {
	userID, err := shared.NewUserID(params.UserID)
	if err != nil {
		return nil, err
	}

	if len(params.Answers) < TotalItems {
		return nil, shared.ErrIncompleteBattery
	}

	for _, v := range params.Answers {
		if !v.IsValid() {
			return nil, shared.ErrInvalidLikert
		}
	}

	dims, err := ComputeDimensions(params.Answers)
	if err != nil {
		return nil, err
	}

	contradictions := ContradictionCount(params.Answers)

	return &UserVector{
		UserID:         userID,
		BatteryVersion: BatteryVersion,
		Answers:        params.Answers,
		SingleChoice:   params.SingleChoice,
		MultiChoice:    params.MultiChoice,
		Dimensions:     dims,
		Valid:          contradictions <= MaxContradictions,
		Contradictions: contradictions,
		CapturedAt:     time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DIMENSION COMPUTATION
// ══════════════════════════════════════════════════════════════════════════════

// dimensionItems - распределение вопросов по измерениям: по 12 подряд
// идущих вопросов на измерение в каноническом порядке.
var dimensionItems = map[Dimension][]ItemID{
	DimensionSocialEnergy:       itemRange(1, 12),
	DimensionOpenness:           itemRange(13, 24),
	DimensionStructure:          itemRange(25, 36),
	DimensionEmotionalStability: itemRange(37, 48),
	DimensionIndependence:       itemRange(49, 60),
}

func itemRange(from, to int) []ItemID {
	items := make([]ItemID, 0, to-from+1)
	for i := from; i <= to; i++ {
		items = append(items, itemID(i))
	}
	return items
}

func itemID(n int) ItemID {
	const digits = "0123456789"
	return ItemID([]byte{'q', digits[n/10], digits[n%10]})
}

// ItemsFor возвращает вопросы, относящиеся к измерению.
func ItemsFor(d Dimension) []ItemID {
	items := dimensionItems[d]
	out := make([]ItemID, len(items))
	copy(out, items)
	return out
}

// ComputeDimensions вычисляет значения пяти измерений из сырых ответов.
// Зеркальные вопросы инвертируются (6 - значение), после чего среднее по
// 12 вопросам измерения линейно отображается со шкалы [1,5] на [0,100].
func ComputeDimensions(answers map[ItemID]LikertValue) (map[Dimension]DimensionScore, error) {
	dims := make(map[Dimension]DimensionScore, len(dimensionItems))

	for dim, items := range dimensionItems {
		sum := 0
		for _, item := range items {
			v, ok := answers[item]
			if !ok {
				return nil, shared.ErrIncompleteBattery
			}
			if !v.IsValid() {
				return nil, shared.ErrInvalidLikert
			}
			if mirroredItems[item] {
				v = 6 - v
			}
			sum += int(v)
		}

		mean := float64(sum) / float64(len(items)) // [1,5]
		score := (mean - 1.0) / 4.0 * 100.0        // [0,100]
		dims[dim] = DimensionScore(int(score + 0.5))
	}

	return dims, nil
}
