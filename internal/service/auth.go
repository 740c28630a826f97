package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/morozovkp/go-taskboard/internal/storage"
	"github.com/morozovkp/go-taskboard/pkg/authtoken"
	"github.com/morozovkp/go-taskboard/pkg/invalidation"
	logctx "github.com/morozovkp/go-taskboard/pkg/log"
	"github.com/morozovkp/go-taskboard/pkg/redact"
)

// Login выполняет вход по email+пароль и выпускает пару токенов.
// Порядок проверок фиксирован: учётная запись -> пароль -> статус.
func (s *Service) Login(ctx context.Context, email, password string) (*authtoken.TokenPair, uuid.UUID, error) {
	const op = "service.auth.Login"

	lg := logctx.From(ctx)

	normEmail := strings.ToLower(strings.TrimSpace(email))
	if normEmail == "" {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.passwords.Verify(password, user.PasswordHash) {
		lg.Warn("login_password_mismatch",
			slog.String("op", op),
			slog.String("email", redact.Email(normEmail)),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrPasswordNotValid)
	}

	if !user.IsActive() {
		lg.Warn("login_status_not_valid",
			slog.String("op", op),
			slog.String("user_id", user.ID.String()),
			slog.String("status", string(user.Status)),
		)
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserStatusNotValid)
	}

	pair, err := s.issuer.Issue(ctx, claimsFor(user))
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, user.ID, nil
}

// Refresh выпускает новый access-токен по валидному refresh-токену.
// Refresh-токен возвращается без изменений (ротации нет); статус
// учётной записи перепроверяется на каждом обновлении.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*authtoken.TokenPair, uuid.UUID, error) {
	const op = "service.auth.Refresh"

	cs, err := s.verifier.Verify(ctx, refreshToken)
	if err != nil {
		// Конкретная причина отказа (expired/malformed/invalidated)
		// пробрасывается наверх без огрубления.
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, cs.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive() {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrUserStatusNotValid)
	}

	pair, err := s.issuer.ReissueAccess(ctx, claimsFor(user), refreshToken)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, user.ID, nil
}

// Logout отзывает пару токенов.
//
// Набор верифицируется как единое целое (jti извлекаются из обоих членов
// до первого отказа); если любой из токенов уже отозван — отказ без
// каких-либо записей. Затем оба jti фиксируются в registry одним
// атомарным вызовом: частично отозванной пары не бывает.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	const op = "service.auth.Logout"

	lg := logctx.From(ctx)

	claims, err := s.verifier.VerifySet(ctx, accessToken, refreshToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	records := make([]invalidation.Record, 0, len(claims))
	for _, cs := range claims {
		records = append(records, invalidation.Record{
			TokenID:   cs.TokenID,
			ExpiresAt: cs.ExpiresAt,
		})
	}

	if err := s.registry.Invalidate(ctx, records...); err != nil {
		lg.Error("logout_invalidate_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, authtoken.ErrKeyUnavailable)
	}

	lg.Info("logout_ok",
		slog.String("op", op),
		slog.String("user_id", claims[0].UserID.String()),
		slog.String("access_jti", redact.JTI(claims[0].TokenID)),
		slog.String("refresh_jti", redact.JTI(claims[1].TokenID)),
	)

	return nil
}

// ValidateToken — самостоятельная точка верификации access-токена
// (используется и другими сервисами через pkg/authtoken напрямую).
func (s *Service) ValidateToken(ctx context.Context, accessToken string) (*authtoken.ClaimSet, error) {
	const op = "service.auth.ValidateToken"

	cs, err := s.verifier.Verify(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return cs, nil
}
