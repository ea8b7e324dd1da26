// Package user содержит доменную модель пользователя Kiko.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package user

import (
	"errors"
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Gender представляет заявленный пол пользователя.
type Gender string

const (
	// GenderFemale - женский.
	GenderFemale Gender = "female"

	// GenderMale - мужской.
	GenderMale Gender = "male"

	// GenderNonBinary - небинарный.
	GenderNonBinary Gender = "non_binary"
)

// IsValid проверяет корректность значения пола.
func (g Gender) IsValid() bool {
	switch g {
	case GenderFemale, GenderMale, GenderNonBinary:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление.
func (g Gender) String() string {
	return string(g)
}

// GenderPreference представляет набор полов, которые пользователь хочет видеть
// среди кандидатов. Пустой набор означает "без предпочтений" - подходят все.
type GenderPreference []Gender

// IsOpen возвращает true, если предпочтение не задано (подходят все).
func (p GenderPreference) IsOpen() bool {
	return len(p) == 0
}

// Allows проверяет, входит ли данный пол в набор предпочтений.
// Пустое предпочтение пропускает любой пол.
func (p GenderPreference) Allows(g Gender) bool {
	if p.IsOpen() {
		return true
	}
	for _, want := range p {
		if want == g {
			return true
		}
	}
	return false
}

// IsValid проверяет корректность всех значений набора.
func (p GenderPreference) IsValid() bool {
	for _, g := range p {
		if !g.IsValid() {
			return false
		}
	}
	return true
}

// Status определяет статус учётной записи пользователя.
type Status string

const (
	// StatusActive - активный пользователь, участвует в подборе.
	StatusActive Status = "active"

	// StatusDeactivated - временно деактивирован (пауза).
	StatusDeactivated Status = "deactivated"

	// StatusDeleted - удалён, в подборе не участвует.
	StatusDeleted Status = "deleted"
)

// IsValid проверяет корректность статуса.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusDeactivated, StatusDeleted:
		return true
	default:
		return false
	}
}

// IsActive возвращает true, если пользователь участвует в подборе.
func (s Status) IsActive() bool {
	return s == StatusActive
}

// ══════════════════════════════════════════════════════════════════════════════
// USER ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// User представляет участника закрытого сообщества Kiko.
// Идентификация, сессии и анкета обрабатываются внешними подсистемами;
// движку подбора нужны только поля, участвующие в жёстких фильтрах.
type User struct {
	// ID - уникальный идентификатор (UUID).
	ID shared.UserID

	// DisplayName - отображаемое имя.
	DisplayName string

	// Gender - заявленный пол.
	Gender Gender

	// Preference - кого пользователь хочет видеть среди кандидатов.
	Preference GenderPreference

	// Status - статус учётной записи.
	Status Status

	// CreatedAt - когда создан.
	CreatedAt time.Time

	// UpdatedAt - когда обновлён.
	UpdatedAt time.Time
}

// NewUserParams параметры для создания пользователя.
type NewUserParams struct {
	ID          string
	DisplayName string
	Gender      Gender
	Preference  GenderPreference
}

// NewUser создаёт нового пользователя в активном статусе.
func NewUser(params NewUserParams) (*User, error) {
	id, err := shared.NewUserID(params.ID)
	if err != nil {
		return nil, err
	}

	if !params.Gender.IsValid() {
		return nil, shared.ErrInvalidGender
	}

	if !params.Preference.IsValid() {
		return nil, shared.ErrInvalidGender
	}

	now := time.Now().UTC()

	return &User{
		ID:          id,
		DisplayName: params.DisplayName,
		Gender:      params.Gender,
		Preference:  params.Preference,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsActive возвращает true, если пользователь участвует в подборе.
func (u *User) IsActive() bool {
	return u.Status.IsActive()
}

// Deactivate приостанавливает участие пользователя.
func (u *User) Deactivate() error {
	if u.Status == StatusDeleted {
		return errors.New("user: cannot deactivate a deleted user")
	}
	u.Status = StatusDeactivated
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// Reactivate возвращает пользователя в активный статус.
func (u *User) Reactivate() error {
	if u.Status == StatusDeleted {
		return errors.New("user: cannot reactivate a deleted user")
	}
	u.Status = StatusActive
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkDeleted помечает пользователя удалённым.
func (u *User) MarkDeleted() {
	u.Status = StatusDeleted
	u.UpdatedAt = time.Now().UTC()
}

// ══════════════════════════════════════════════════════════════════════════════
// MUTUAL PREFERENCE CHECK
// ══════════════════════════════════════════════════════════════════════════════

// MutuallyCompatible проверяет взаимную совместимость предпочтений двух
// пользователей: предпочтение каждой стороны должно допускать пол другой.
// Односторонней совместимости недостаточно.
func MutuallyCompatible(a, b *User) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Preference.Allows(b.Gender) && b.Preference.Allows(a.Gender)
}
