package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы учётной записи.
type UserStatus string

const (
	// StatusPending — регистрация создана, e-mail ещё не подтверждён.
	StatusPending UserStatus = "pending"
	// StatusActive — активная учётная запись с подтверждённым e-mail.
	StatusActive UserStatus = "active"
	// StatusSuspended — заблокирована администратором.
	StatusSuspended UserStatus = "suspended"
)

// Провайдеры аутентификации.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
	ProviderGithub = "github"
)

// Типы пользователей (роль в claims).
const (
	UserTypeMember = "member"
	UserTypeAdmin  = "admin"
)

// User — модель учётной записи.
//
// Version — счётчик оптимистической блокировки: апдейты профиля при
// внешнем входе выполняются условно по версии, гонка двух логинов
// поднимается наверх как конфликт, а не теряется молча.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	UserType     string
	Status       UserStatus
	// Provider/ExternalID — привязка к внешнему identity-провайдеру;
	// для локальных учёток Provider == ProviderLocal, ExternalID пуст.
	Provider   string
	ExternalID string
	Name       string
	AvatarURL  string
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsActive — учётная запись в состоянии "активна и e-mail подтверждён".
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
