// authtoken — выпуск и проверка подписанных bearer-токенов (access/refresh).
//
// Пакет разделяет две роли:
//   - Issuer живёт только в выпускающем сервисе и требует приватный ключ;
//   - Verifier собирается из одного публичного ключа + Registry и
//     переиспользуется любым сервисом системы без общей БД.
//
// Основные аспекты:
//   - Проверка токена — чистая функция от (строка, публичный ключ,
//     снапшот registry, текущее время); состояние не мутируется.
//   - Ошибки возвращаются как sentinel-значения этого пакета и далее
//     маппятся транспортом на HTTP-коды (см. комментарии ниже).
package authtoken

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTokenMalformed — строка не является корректной подписанной структурой
	// или подпись не сходится с публичным ключом. Транспорт: 401.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenExpired — exp токена в прошлом. Транспорт: 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalidated — jti токена присутствует в registry
	// (logout/принудительный отзыв). Транспорт: 401.
	ErrTokenInvalidated = errors.New("token invalidated")

	// ErrKeyUnavailable — отсутствует ключевой материал, недоступен registry
	// или на вход пришла пустая строка (дефект вызывающего кода, а не
	// невалидный credential). Транспорт: 500, никогда не 401.
	ErrKeyUnavailable = errors.New("signing key unavailable")
)

// ClaimSet — семантическая нагрузка токена: идентичность + атрибуты
// авторизации + lifecycle-маркеры. После подписи неизменяем.
type ClaimSet struct {
	UserID   uuid.UUID
	Email    string
	UserType string
	// Extra — произвольные дополнительные claims вызывающей стороны.
	Extra map[string]string

	// Lifecycle-поля. Заполняются в момент подписи; при построении
	// ClaimSet на выпуск оставляются нулевыми.
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair — пара access+refresh, выдаваемая при аутентификации.
// Access и refresh — независимо подписанные артефакты с собственными
// jti/iat/exp, а не один payload дважды.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}

// Options — общие параметры выпуска/проверки.
type Options struct {
	// Issuer попадает в iss и проверяется верификатором.
	Issuer string
	// Audience попадает в aud; пустой срез отключает проверку aud.
	Audience []string
	// Leeway — допуск на рассинхронизацию часов при проверке exp/iat.
	Leeway time.Duration
}
