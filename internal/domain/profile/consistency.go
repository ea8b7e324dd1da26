package profile

// ══════════════════════════════════════════════════════════════════════════════
// CONSISTENCY VALIDATOR
//
// Батарея содержит десять зеркальных пар: один вопрос сформулирован
// утвердительно, его зеркало - как логическое отрицание. У последовательного
// респондента сумма ответов пары на шкале 1-5 близка к шести. Большое
// отклонение на многих парах означает "прямолинейное" заполнение (все
// пятёрки) или сознательную игру против инструмента - такой вектор
// исключается из подбора полностью.
// ══════════════════════════════════════════════════════════════════════════════

// MirrorPair представляет зеркальную пару вопросов.
type MirrorPair struct {
	// Positive - утвердительная формулировка.
	Positive ItemID

	// Negated - зеркальная формулировка (отрицание).
	Negated ItemID
}

// mirrorPairs - десять объявленных зеркальных пар батареи: по две на
// каждое измерение.
var mirrorPairs = []MirrorPair{
	{Positive: "q01", Negated: "q07"},
	{Positive: "q04", Negated: "q10"},
	{Positive: "q13", Negated: "q19"},
	{Positive: "q16", Negated: "q22"},
	{Positive: "q25", Negated: "q31"},
	{Positive: "q28", Negated: "q34"},
	{Positive: "q37", Negated: "q43"},
	{Positive: "q40", Negated: "q46"},
	{Positive: "q49", Negated: "q55"},
	{Positive: "q52", Negated: "q58"},
}

// mirroredItems - вопросы с инвертированной шкалой (зеркальная сторона пар).
var mirroredItems = func() map[ItemID]bool {
	m := make(map[ItemID]bool, len(mirrorPairs))
	for _, p := range mirrorPairs {
		m[p.Negated] = true
	}
	return m
}()

const (
	// ExpectedPairSum - ожидаемая сумма ответов согласованной пары на
	// шкале 1-5.
	ExpectedPairSum = 6

	// ContradictionThreshold - минимальное отклонение суммы пары от
	// ожидаемой, считающееся противоречием.
	ContradictionThreshold = 3

	// MaxContradictions - максимально допустимое число противоречий.
	// Ровно три противоречия - ещё валидно, четыре - уже нет.
	MaxContradictions = 3
)

// MirrorPairs возвращает объявленные зеркальные пары батареи.
func MirrorPairs() []MirrorPair {
	pairs := make([]MirrorPair, len(mirrorPairs))
	copy(pairs, mirrorPairs)
	return pairs
}

// PairInconsistency возвращает отклонение суммы ответов пары от ожидаемой.
func PairInconsistency(a, b LikertValue) int {
	diff := int(a) + int(b) - ExpectedPairSum
	if diff < 0 {
		diff = -diff
	}
	return diff
}

// ContradictionCount считает противоречия по зеркальным парам.
// Пара без обоих ответов противоречием не считается.
func ContradictionCount(answers map[ItemID]LikertValue) int {
	count := 0
	for _, pair := range mirrorPairs {
		a, okA := answers[pair.Positive]
		b, okB := answers[pair.Negated]
		if !okA || !okB {
			continue
		}
		if PairInconsistency(a, b) >= ContradictionThreshold {
			count++
		}
	}
	return count
}

// IsConsistent проверяет, проходит ли набор ответов порог согласованности.
func IsConsistent(answers map[ItemID]LikertValue) bool {
	return ContradictionCount(answers) <= MaxContradictions
}
