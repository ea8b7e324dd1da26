// Package matching содержит ядро еженедельного подбора Kiko: оценку
// совместимости, фильтры пула кандидатов, батч как якорь идемпотентности и
// машину состояний предложения. Это ядро бизнес-логики - здесь нет внешних
// зависимостей.
package matching

import (
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
	"github.com/kiko-app/kiko-matching/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEEK KEY & ROUND
// ══════════════════════════════════════════════════════════════════════════════

// WeekKey представляет календарную неделю по ISO-8601 (старт в понедельник),
// вычисленную в опорном часовом поясе. Формат: "2026-W07".
type WeekKey string

// IsValid проверяет формат ключа недели.
func (w WeekKey) IsValid() bool {
	return timeutil.IsValidWeekKey(string(w))
}

// String возвращает строковое представление.
func (w WeekKey) String() string {
	return string(w)
}

// WeekKeyFor возвращает ключ недели для данного момента времени.
func WeekKeyFor(t time.Time) WeekKey {
	return WeekKey(timeutil.ISOWeekKey(t))
}

// CurrentWeekKey возвращает ключ текущей недели.
func CurrentWeekKey() WeekKey {
	return WeekKey(timeutil.CurrentWeekKey())
}

// NewWeekKey создаёт ключ недели с валидацией.
func NewWeekKey(s string) (WeekKey, error) {
	w := WeekKey(s)
	if !w.IsValid() {
		return "", shared.ErrInvalidWeekKey
	}
	return w, nil
}

// Round представляет один из двух еженедельных выпусков подбора.
type Round string

const (
	// RoundThursday - основной выпуск (четверг).
	RoundThursday Round = "thu"

	// RoundFriday - выпуск "второго шанса" (пятница): только для тех, кто
	// принял предложение четверга, но не получил взаимности.
	RoundFriday Round = "fri"
)

// IsValid проверяет корректность раунда.
func (r Round) IsValid() bool {
	return r == RoundThursday || r == RoundFriday
}

// IsFirst возвращает true для основного выпуска.
func (r Round) IsFirst() bool {
	return r == RoundThursday
}

// IsSecond возвращает true для выпуска второго шанса.
func (r Round) IsSecond() bool {
	return r == RoundFriday
}

// String возвращает строковое представление.
func (r Round) String() string {
	return string(r)
}

// NewRound создаёт раунд с валидацией.
func NewRound(s string) (Round, error) {
	r := Round(s)
	if !r.IsValid() {
		return "", shared.ErrInvalidRound
	}
	return r, nil
}

// RoundKey представляет уникальный ключ (неделя, раунд) - единицу
// идемпотентности генератора батчей.
type RoundKey string

// MakeRoundKey собирает ключ раунда из ключа недели и раунда.
func MakeRoundKey(week WeekKey, round Round) RoundKey {
	return RoundKey(string(week) + ":" + string(round))
}

// String возвращает строковое представление.
func (k RoundKey) String() string {
	return string(k)
}
