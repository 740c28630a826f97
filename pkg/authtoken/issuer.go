package authtoken

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	logctx "github.com/morozovkp/go-taskboard/pkg/log"
)

// wireClaims — wire-формат payload'а. Формат фиксирован для
// интероперабельности между сервисами: jti/iat/exp из RegisteredClaims
// плюс идентификационные атрибуты.
type wireClaims struct {
	UserID   string            `json:"uid"`
	UserType string            `json:"utype"`
	Email    string            `json:"email"`
	Extra    map[string]string `json:"ext,omitempty"`
	jwt.RegisteredClaims
}

// SigningKeySource отдаёт приватный ключ подписи. Доступен только внутри
// выпускающего процесса; верификаторы этот интерфейс не видят.
type SigningKeySource interface {
	Signing() (*rsa.PrivateKey, error)
}

// Issuer превращает ClaimSet в подписанную пару токенов.
type Issuer struct {
	keys       SigningKeySource
	accessTTL  time.Duration
	refreshTTL time.Duration
	opts       Options
}

// NewIssuer создаёт Issuer. TTL access-токена должен быть существенно
// меньше TTL refresh-токена; оба задаются конфигурацией деплоя.
func NewIssuer(keys SigningKeySource, accessTTL, refreshTTL time.Duration, opts Options) *Issuer {
	return &Issuer{
		keys:       keys,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		opts:       opts,
	}
}

// Issue подписывает новую пару access+refresh.
// Каждому токену назначаются собственные свежие jti и iat: время берётся
// отдельным вызовом на каждый артефакт, без кэшированного timestamp.
func (i *Issuer) Issue(ctx context.Context, cs ClaimSet) (*TokenPair, error) {
	const op = "authtoken.Issue"

	access, accessExp, err := i.sign(ctx, cs, i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, _, err := i.sign(ctx, cs, i.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: accessExp,
	}, nil
}

// ReissueAccess выпускает новый access-токен, а refresh-токен вызывающего
// возвращает без изменений: refresh-токены в этой схеме не ротируются при
// каждом обновлении access (осознанная политика, помечена на product-review).
func (i *Issuer) ReissueAccess(ctx context.Context, cs ClaimSet, refreshToken string) (*TokenPair, error) {
	const op = "authtoken.ReissueAccess"

	if strings.TrimSpace(refreshToken) == "" {
		return nil, fmt.Errorf("%s: empty refresh token: %w", op, ErrKeyUnavailable)
	}

	access, accessExp, err := i.sign(ctx, cs, i.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    refreshToken,
		AccessExpiresAt: accessExp,
	}, nil
}

// sign подписывает один токен. Побочных эффектов нет: ни одной записи в
// хранилище при выпуске не происходит.
func (i *Issuer) sign(ctx context.Context, cs ClaimSet, ttl time.Duration) (string, time.Time, error) {
	const op = "authtoken.sign"

	lg := logctx.From(ctx)

	key, err := i.keys.Signing()
	if err != nil {
		lg.Error("signing_key_unavailable",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", time.Time{}, err
	}

	now := time.Now().UTC()
	exp := now.Add(ttl)

	claims := wireClaims{
		UserID:   cs.UserID.String(),
		UserType: cs.UserType,
		Email:    cs.Email,
		Extra:    cs.Extra,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    i.opts.Issuer,
			Subject:   cs.UserID.String(),
			Audience:  jwt.ClaimStrings(i.opts.Audience),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	// Фиксированный заголовок wire-формата.
	token.Header["typ"] = "Bearer"

	signed, err := token.SignedString(key)
	if err != nil {
		lg.Error("token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, exp, nil
}
