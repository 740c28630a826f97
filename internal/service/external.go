package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/morozovkp/go-taskboard/internal/identity"
	"github.com/morozovkp/go-taskboard/internal/models"
	"github.com/morozovkp/go-taskboard/internal/storage"
	"github.com/morozovkp/go-taskboard/pkg/authtoken"
	logctx "github.com/morozovkp/go-taskboard/pkg/log"
	"github.com/morozovkp/go-taskboard/pkg/redact"
)

// ExternalLogin — вход через внешний identity-провайдер: разрешение сырых
// атрибутов в стабильную идентичность, привязка/создание учётной записи,
// выпуск пары токенов. Первоклассная операция с явными входами и выходами.
func (s *Service) ExternalLogin(ctx context.Context, provider string, attrs map[string]any) (*authtoken.TokenPair, *models.User, error) {
	const op = "service.auth.ExternalLogin"

	ext, err := s.identities.Resolve(provider, attrs)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.ProcessExternalUser(ctx, ext)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive() {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrUserStatusNotValid)
	}

	pair, err := s.issuer.Issue(ctx, claimsFor(user))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, user, nil
}

// ProcessExternalUser привязывает внешнюю идентичность к учётной записи:
//   - учётка найдена, но привязана к другому провайдеру -> ErrProviderMismatch
//     с именем исходного провайдера, без какой-либо мутации;
//   - найдена и провайдер совпал -> обновление атрибутов профиля под
//     оптимистической блокировкой (гонка -> ErrConcurrentUpdate);
//   - не найдена -> новая учётная запись, привязанная к провайдеру и email.
func (s *Service) ProcessExternalUser(ctx context.Context, ext *identity.External) (*models.User, error) {
	const op = "service.auth.ProcessExternalUser"

	lg := logctx.From(ctx)

	user, err := s.storage.UserByEmail(ctx, ext.Email)
	if err == nil {
		if user.Provider != ext.Provider {
			lg.Warn("external_provider_mismatch",
				slog.String("op", op),
				slog.String("email", redact.Email(ext.Email)),
				slog.String("have", user.Provider),
				slog.String("want", ext.Provider),
			)
			return nil, fmt.Errorf("%s: account is bound to provider %q: %w", op, user.Provider, ErrProviderMismatch)
		}

		user.Name = ext.Name
		user.AvatarURL = ext.AvatarURL
		user.ExternalID = ext.ExternalID

		if err := s.storage.UpdateUserProfile(ctx, user); err != nil {
			if errors.Is(err, storage.ErrVersionConflict) {
				return nil, fmt.Errorf("%s: %w", op, ErrConcurrentUpdate)
			}

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return user, nil
	}

	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Первый вход: внешняя идентичность подтверждает e-mail, поэтому
	// учётная запись создаётся сразу активной.
	now := time.Now().UTC()
	user = &models.User{
		ID:         uuid.New(),
		Email:      ext.Email,
		UserType:   models.UserTypeMember,
		Status:     models.StatusActive,
		Provider:   ext.Provider,
		ExternalID: ext.ExternalID,
		Name:       ext.Name,
		AvatarURL:  ext.AvatarURL,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Два первых входа наперегонки: второй проигрывает и повторяет
			// аутентификацию.
			return nil, fmt.Errorf("%s: %w", op, ErrConcurrentUpdate)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("external_user_created",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
		slog.String("provider", ext.Provider),
	)

	return user, nil
}
