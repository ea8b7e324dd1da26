package profile

import (
	"context"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// VectorProvider определяет контракт чтения векторов.
// Подсистема профиля владеет векторами; движку подбора нужен только доступ
// на чтение. Реализуется инфраструктурным слоем (PostgreSQL + кэш Redis).
type VectorProvider interface {
	// GetVector возвращает текущий вектор пользователя.
	// Возвращает shared.ErrVectorNotFound, если вектора нет.
	GetVector(ctx context.Context, userID shared.UserID) (*UserVector, error)
}

// Repository расширяет VectorProvider операциями записи, которые нужны
// подсистеме профиля (и тестовым фикстурам).
type Repository interface {
	VectorProvider

	// Save сохраняет вектор, заменяя предыдущий снимок пользователя.
	Save(ctx context.Context, v *UserVector) error

	// Delete удаляет вектор пользователя.
	Delete(ctx context.Context, userID shared.UserID) error
}
