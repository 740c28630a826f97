// errors стандартизирует ответы об ошибках HTTP-слоя auth-сервиса.
// На вход он принимает доменную ошибку (sentinel из service/authtoken),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Все ошибки терминальны для запроса — внутренних ретраев нет.
// Серверный класс (ErrKeyUnavailable, ErrConcurrentUpdate) наружу отдаётся
// единым 500/retry без деталей; клиентский класс — 401/400/409 с коротким
// стабильным кодом, конкретная причина остаётся в логах.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/morozovkp/go-taskboard/internal/identity"
	"github.com/morozovkp/go-taskboard/internal/service"
	"github.com/morozovkp/go-taskboard/pkg/authtoken"
)

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и унифицированный ответ.
// err == nil — программная ошибка вызова: 500, чтобы не замаскировать баг
// ответом "200 OK".
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := base(err)
	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// ErrBadRequest — локальная ошибка разбора входного JSON.
var ErrBadRequest = errors.New("invalid argument")

// base — таблица маппинга доменных sentinel-ошибок.
func base(err error) (int, string, string) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, "internal", "internal error"

	// 400 — некорректный вход.
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrEmptyPassword),
		errors.Is(err, identity.ErrUnknownProvider),
		errors.Is(err, identity.ErrIncompleteAttributes):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"

	// 401 — невалидный credential; конкретная причина остаётся в логах.
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPasswordNotValid),
		errors.Is(err, service.ErrUserStatusNotValid),
		errors.Is(err, authtoken.ErrTokenMalformed),
		errors.Is(err, authtoken.ErrTokenExpired),
		errors.Is(err, authtoken.ErrTokenInvalidated):
		return http.StatusUnauthorized, "unauthenticated", "unauthenticated"

	// 409 — конфликты.
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, "already_exists", "already exists"
	case errors.Is(err, service.ErrProviderMismatch):
		return http.StatusConflict, "provider_mismatch", "account is bound to another provider"

	// Серверный класс: конфигурация/ключи/registry и гонки записи.
	case errors.Is(err, authtoken.ErrKeyUnavailable):
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, service.ErrConcurrentUpdate):
		return http.StatusInternalServerError, "retry", "retry authentication"

	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
