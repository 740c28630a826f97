// service содержит бизнес-логику auth-сервиса: вход/обновление/выход,
// регистрацию и первый вход через внешний identity-провайдер.
//
// Основные аспекты:
//   - Все зависимости (хранилище, Issuer, Verifier, Registry, проверка
//     паролей, резолвер внешних идентичностей) передаются в конструктор
//     явно; глобальных lookup'ов нет.
//   - Пакет не хранит состояние запроса внутри Service; экземпляр
//     безопасен для конкурентного использования при потокобезопасных
//     зависимостях.
//   - Ошибки возвращаются как sentinel-значения и далее маппятся
//     HTTP-слоем (см. internal/errors); ошибки pkg/authtoken
//     (malformed/expired/invalidated/key unavailable) пробрасываются
//     как есть.
package service

import (
	"errors"

	"github.com/morozovkp/go-taskboard/internal/config"
	"github.com/morozovkp/go-taskboard/internal/identity"
	"github.com/morozovkp/go-taskboard/internal/models"
	"github.com/morozovkp/go-taskboard/internal/security/password"
	"github.com/morozovkp/go-taskboard/internal/storage"
	"github.com/morozovkp/go-taskboard/pkg/authtoken"
	"github.com/morozovkp/go-taskboard/pkg/invalidation"
)

var (
	// ErrUserNotFound — вход/обновление ссылаются на несуществующую
	// учётную запись. Транспорт: 401 (наружу причина не детализируется).
	ErrUserNotFound = errors.New("user not found")

	// ErrPasswordNotValid — пароль не совпал с хэшем. Транспорт: 401.
	ErrPasswordNotValid = errors.New("password not valid")

	// ErrUserStatusNotValid — учётная запись существует, но не в состоянии
	// "активна + e-mail подтверждён" (pending и suspended снаружи
	// неразличимы). Транспорт: 401.
	ErrUserStatusNotValid = errors.New("user status not valid")

	// ErrEmailTaken — e-mail уже занят. Транспорт: 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidEmail — e-mail не проходит валидацию формата. Транспорт: 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль не удовлетворяет политике сложности. Транспорт: 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrProviderMismatch — e-mail уже привязан к другому identity-провайдеру.
	// Сообщение называет исходный провайдер. Транспорт: 409.
	ErrProviderMismatch = errors.New("identity provider mismatch")

	// ErrConcurrentUpdate — гонка записи при привязке внешней идентичности;
	// вызывающему следует повторить аутентификацию. Транспорт: 500-класс.
	ErrConcurrentUpdate = errors.New("concurrent update, retry authentication")
)

// Service — оркестратор аутентификационных потоков.
type Service struct {
	storage    storage.Storage
	issuer     *authtoken.Issuer
	verifier   *authtoken.Verifier
	registry   invalidation.Registry
	passwords  password.Verifier
	identities identity.Resolver
	cfg        config.AuthConfig
}

// New создаёт новый экземпляр Service со всеми зависимостями.
func New(
	st storage.Storage,
	issuer *authtoken.Issuer,
	verifier *authtoken.Verifier,
	registry invalidation.Registry,
	passwords password.Verifier,
	identities identity.Resolver,
	cfg config.AuthConfig,
) *Service {
	return &Service{
		storage:    st,
		issuer:     issuer,
		verifier:   verifier,
		registry:   registry,
		passwords:  passwords,
		identities: identities,
		cfg:        cfg,
	}
}

// claimsFor строит ClaimSet из учётной записи. Lifecycle-поля (jti/iat/exp)
// назначает Issuer в момент подписи.
func claimsFor(user *models.User) authtoken.ClaimSet {
	return authtoken.ClaimSet{
		UserID:   user.ID,
		Email:    user.Email,
		UserType: user.UserType,
	}
}
