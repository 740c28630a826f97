package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/morozovkp/go-taskboard/internal/models"
	"github.com/morozovkp/go-taskboard/internal/storage"
)

const userColumns = `id, email, password_hash, user_type, status, provider, external_id, name, avatar_url, version, created_at, updated_at`

// SaveUser создает новую учётную запись.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(id, email, password_hash, user_type, status, provider, external_id, name, avatar_url, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.UserType,
		user.Status,
		user.Provider,
		user.ExternalID,
		user.Name,
		user.AvatarURL,
		user.Version,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByEmail находит учётную запись по email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.postgres.UserByEmail"

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := s.scanUser(s.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UserByID находит учётную запись по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := s.scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateUserProfile обновляет атрибуты профиля условно по версии.
// Возвращает:
//   - nil — версия совпала, запись обновлена (version увеличен);
//   - ErrVersionConflict — запись существует, но версия ушла вперёд
//     (гонка двух конкурентных логинов);
//   - ErrNotFound — записи нет.
func (s *Storage) UpdateUserProfile(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.UpdateUserProfile"

	const upd = `
		UPDATE users
		SET name = $1, avatar_url = $2, external_id = $3,
		    version = version + 1, updated_at = now()
		WHERE id = $4 AND version = $5
		RETURNING version
	`

	var newVersion int64
	err := s.db.QueryRow(ctx, upd,
		user.Name,
		user.AvatarURL,
		user.ExternalID,
		user.ID,
		user.Version,
	).Scan(&newVersion)
	if err == nil {
		user.Version = newVersion
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, err)
	}

	// UPDATE никого не задел: различаем "нет записи" и "версия ушла".
	const sel = `SELECT version FROM users WHERE id = $1`

	var current int64
	err = s.db.QueryRow(ctx, sel, user.ID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: have %d, want %d: %w", op, current, user.Version, storage.ErrVersionConflict)
}

// UpdateUserStatus переводит учётную запись в новый статус.
func (s *Storage) UpdateUserStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) error {
	const op = "storage.postgres.UpdateUserStatus"

	query := `
		UPDATE users
		SET status = $1, version = version + 1, updated_at = now()
		WHERE id = $2
	`

	cmdTag, err := s.db.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.UserType,
		&user.Status,
		&user.Provider,
		&user.ExternalID,
		&user.Name,
		&user.AvatarURL,
		&user.Version,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}
