package user

import (
	"context"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// Repository определяет контракт хранилища пользователей.
// Реализуется инфраструктурным слоем (PostgreSQL).
type Repository interface {
	// Create создаёт нового пользователя.
	Create(ctx context.Context, u *User) error

	// GetByID возвращает пользователя по ID.
	// Возвращает shared.ErrUserNotFound, если пользователь не найден.
	GetByID(ctx context.Context, id shared.UserID) (*User, error)

	// Update обновляет пользователя.
	Update(ctx context.Context, u *User) error

	// ListActive возвращает всех активных пользователей в стабильном порядке
	// (по возрастанию ID). Стабильный порядок важен: он служит tie-break'ом
	// при равных оценках совместимости.
	ListActive(ctx context.Context) ([]*User, error)
}

// BlockRepository определяет контракт хранилища блокировок.
// Блокировка действует симметрично: блок любой стороной в любом направлении
// исключает пару из подбора целиком.
type BlockRepository interface {
	// Create создаёт блокировку blocker -> blocked.
	Create(ctx context.Context, blockerID, blockedID shared.UserID) error

	// IsBlockedEither возвращает true, если между двумя пользователями
	// существует блокировка в любом направлении.
	IsBlockedEither(ctx context.Context, a, b shared.UserID) (bool, error)

	// BlockedSetFor возвращает множество пользователей, связанных блокировкой
	// с данным пользователем (в любом направлении). Используется при
	// построении пула кандидатов, чтобы не делать по запросу на пару.
	BlockedSetFor(ctx context.Context, id shared.UserID) (map[shared.UserID]struct{}, error)
}
