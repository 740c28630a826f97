package authtoken

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	logctx "github.com/morozovkp/go-taskboard/pkg/log"
)

type claimsCtxKey struct{}

// ClaimsFrom достаёт проверенный ClaimSet из контекста запроса.
// ClaimSet прокидывается явным аргументом через контекст запроса, а не
// читается из какого-либо ambient-состояния.
func ClaimsFrom(ctx context.Context) (*ClaimSet, bool) {
	cs, ok := ctx.Value(claimsCtxKey{}).(*ClaimSet)
	return cs, ok
}

// WithClaims кладёт ClaimSet в контекст (используется middleware и тестами).
func WithClaims(ctx context.Context, cs *ClaimSet) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, cs)
}

// RequireAuth — net/http middleware для любого сервиса системы:
// извлекает Bearer-токен из Authorization, верифицирует и кладёт ClaimSet
// в контекст. Отказы клиентского класса -> 401, ErrKeyUnavailable -> 500.
func RequireAuth(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			cs, err := v.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, ErrKeyUnavailable) {
					logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError,
						"token_verify_unavailable",
						slog.String("path", r.URL.Path),
						slog.String("err", err.Error()),
					)
					writeAuthError(w, http.StatusInternalServerError, "internal")
					return
				}

				writeAuthError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), cs)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) || len(auth) == len(prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}

func writeAuthError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": code},
	})
}
