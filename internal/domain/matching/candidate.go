package matching

import (
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
	"github.com/kiko-app/kiko-matching/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// CANDIDATE POOL
//
// Жёсткие фильтры пула работают в памяти над всей активной популяцией:
// слой хранения не умеет эффективно фильтровать по полуструктурированным
// предпочтениям. Это осознанный потолок масштабирования - приемлемо до
// нескольких тысяч активных пользователей, O(n^2) на полный прогон недели.
// ══════════════════════════════════════════════════════════════════════════════

// CooldownWindowDays - длительность окна охлаждения: кандидат, которого
// пользователь явно отклонил в течение окна, не попадает в его пул.
// Окно несимметрично: охлаждение отклонившего не влияет на пул отклонённого.
const CooldownWindowDays = 28

// CandidateSet представляет эфемерное множество кандидатов одного запуска.
// Никогда не сохраняется.
type CandidateSet map[shared.UserID]struct{}

// NewCandidateSet создаёт множество из списка идентификаторов.
func NewCandidateSet(ids []shared.UserID) CandidateSet {
	set := make(CandidateSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains проверяет наличие кандидата в множестве.
func (s CandidateSet) Contains(id shared.UserID) bool {
	_, ok := s[id]
	return ok
}

// Add добавляет кандидата в множество.
func (s CandidateSet) Add(id shared.UserID) {
	s[id] = struct{}{}
}

// PassesHardFilters проверяет одного кандидата против жёстких фильтров:
// активен, не сам инициатор, нет блокировки между парой (в любом
// направлении), предпочтения по полу взаимно совместимы.
// Наличие и валидность вектора кандидата проверяет генератор - у него
// есть доступ к провайдеру векторов.
func PassesHardFilters(requester, candidate *user.User, blocked CandidateSet) bool {
	if requester == nil || candidate == nil {
		return false
	}
	if candidate.ID == requester.ID {
		return false
	}
	if !candidate.IsActive() {
		return false
	}
	if blocked.Contains(candidate.ID) {
		return false
	}
	return user.MutuallyCompatible(requester, candidate)
}

// FilterCandidates прогоняет популяцию через жёсткие фильтры, сохраняя
// исходный порядок. Порядок важен: при равных оценках побеждает более
// ранний кандидат (стабильный tie-break по порядку ListActive).
func FilterCandidates(requester *user.User, population []*user.User, blocked CandidateSet) []*user.User {
	out := make([]*user.User, 0, len(population))
	for _, candidate := range population {
		if PassesHardFilters(requester, candidate, blocked) {
			out = append(out, candidate)
		}
	}
	return out
}

// ApplyCooldown исключает кандидатов из множества охлаждения, сохраняя
// порядок остальных.
func ApplyCooldown(candidates []*user.User, recentlyRejected CandidateSet) []*user.User {
	if len(recentlyRejected) == 0 {
		return candidates
	}
	out := make([]*user.User, 0, len(candidates))
	for _, candidate := range candidates {
		if !recentlyRejected.Contains(candidate.ID) {
			out = append(out, candidate)
		}
	}
	return out
}
