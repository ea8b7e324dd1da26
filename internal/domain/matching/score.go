package matching

import (
	"github.com/kiko-app/kiko-matching/internal/domain/profile"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORING PHILOSOPHY
//
// Философия оценки: "Близость, а не качество"
//
// Совместимость по измерению - это симметричная близость значений:
// 100 - |a - b|. Направление не важно: двое с одинаково низкой потребностью
// в автономии совместимы так же, как двое с одинаково высокой. Единственное
// исключение - эмоциональная устойчивость: близость двух низких значений
// получает штраф 0.8, потому что двое неустойчивых вместе хуже, чем
// предсказывает одна близость.
//
// Оценка чистая и детерминированная: никакого I/O, никакого ML.
// ══════════════════════════════════════════════════════════════════════════════

// MatchScore представляет оценку совместимости (0-100).
type MatchScore int

// IsValid проверяет корректность оценки.
func (m MatchScore) IsValid() bool {
	return m >= 0 && m <= 100
}

// Int возвращает целочисленное значение.
func (m MatchScore) Int() int {
	return int(m)
}

// Meets проверяет, достигает ли оценка порога.
func (m MatchScore) Meets(threshold int) bool {
	return int(m) >= threshold
}

const (
	// DefaultThreshold - минимальная оценка, при которой кандидат может
	// стать предложением.
	DefaultThreshold = 80

	// lowBand - верхняя граница "нижней зоны" значения измерения.
	lowBand = 35

	// highBand - нижняя граница "верхней зоны" значения измерения.
	highBand = 75

	// reasonGap - максимальный разрыв значений, при котором измерение
	// порождает причину.
	reasonGap = 15

	// maxReasons - максимальное количество причин в результате.
	maxReasons = 3

	// volatilityPenalty - штраф за близость двух низких значений
	// эмоциональной устойчивости.
	volatilityPenalty = 0.8
)

// ScoreResult - итог оценки пары: число и до трёх человекочитаемых причин.
// Живёт только внутри одного запуска генератора, не сохраняется.
type ScoreResult struct {
	// Score - итоговая оценка совместимости (0-100).
	Score MatchScore

	// Reasons - упорядоченный список причин (не более трёх).
	Reasons []string
}

// reasonInvalidVector - причина при невалидном векторе любой из сторон.
const reasonInvalidVector = "Profile answers were inconsistent, so no compatibility could be computed."

// reasonGenericHigh - общая причина, когда оценка высокая, но ни одно
// измерение не попало в зону причин.
const reasonGenericHigh = "Your overall answer profiles are remarkably close."

// dimensionReasons - готовые формулировки по (измерение, направление).
var dimensionReasons = map[profile.Dimension]struct{ high, low string }{
	profile.DimensionSocialEnergy: {
		high: "You both recharge in company and love a full calendar.",
		low:  "You both prefer quiet evenings over big crowds.",
	},
	profile.DimensionOpenness: {
		high: "You share a strong appetite for new places and ideas.",
		low:  "You both value the familiar and build on routines that work.",
	},
	profile.DimensionStructure: {
		high: "You both like plans, order and knowing what comes next.",
		low:  "You both take life as it comes, without rigid plans.",
	},
	profile.DimensionEmotionalStability: {
		high: "You both stay calm under pressure and give each other room.",
		low:  "You both feel things deeply and will understand each other's storms.",
	},
	profile.DimensionIndependence: {
		high: "You both need your own space and respect it in a partner.",
		low:  "You both want closeness and a lot of shared time.",
	},
}

// Score вычисляет совместимость двух векторов.
//
// Гарантии: Score(a,b) == Score(b,a) для любых пар; результат всегда в
// [0,100]; невалидный вектор любой из сторон даёт 0 без вычисления измерений.
func Score(a, b *profile.UserVector) ScoreResult {
	if a == nil || b == nil || !a.Valid || !b.Valid {
		return ScoreResult{
			Score:   0,
			Reasons: []string{reasonInvalidVector},
		}
	}

	var (
		total   float64
		reasons []string
	)

	for _, dim := range profile.AllDimensions() {
		va := a.DimensionValue(dim)
		vb := b.DimensionValue(dim)

		gap := va - vb
		if gap < 0 {
			gap = -gap
		}

		closeness := float64(100 - gap)

		// Двое в нижней зоне устойчивости: близость сама по себе
		// переоценивает такую пару.
		if dim == profile.DimensionEmotionalStability && va <= lowBand && vb <= lowBand {
			closeness *= volatilityPenalty
		}

		total += closeness

		if len(reasons) < maxReasons && gap < reasonGap {
			texts := dimensionReasons[dim]
			switch {
			case va >= highBand && vb >= highBand:
				reasons = append(reasons, texts.high)
			case va <= lowBand && vb <= lowBand:
				reasons = append(reasons, texts.low)
			}
		}
	}

	score := MatchScore(int(total/float64(len(profile.AllDimensions())) + 0.5))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	if len(reasons) == 0 && score.Meets(DefaultThreshold) {
		reasons = append(reasons, reasonGenericHigh)
	}

	return ScoreResult{
		Score:   score,
		Reasons: reasons,
	}
}
