package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/morozovkp/go-taskboard/internal/models"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrVersionConflict — конкурентное обновление: версия записи успела
	// измениться между чтением и условным UPDATE.
	ErrVersionConflict = errors.New("version conflict")
)

// UserStorage выполняет операции над учётными записями.
type UserStorage interface {
	// SaveUser создает новую учётную запись.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит учётную запись по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит учётную запись по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UpdateUserProfile обновляет атрибуты профиля условно по версии
	// (оптимистическая блокировка); при гонке — ErrVersionConflict.
	UpdateUserProfile(ctx context.Context, user *models.User) error
	// UpdateUserStatus переводит учётную запись в новый статус.
	UpdateUserStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	Close()
}
