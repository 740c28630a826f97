package authtoken

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Registry отвечает на вопрос "отозван ли токен с данным jti?".
// Для выпускающего сервиса это локальное хранилище, для остальных —
// сетевой вызов к той же логической authority (см. pkg/invalidation).
type Registry interface {
	IsInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// Verifier решает, пригоден ли токен в данный момент.
// Собирается только из публичного ключа — приватный ключ верификаторам
// не передаётся никогда.
type Verifier struct {
	pub      *rsa.PublicKey
	registry Registry
	opts     Options
}

// NewVerifier создаёт Verifier поверх распределённого публичного ключа.
func NewVerifier(pub *rsa.PublicKey, registry Registry, opts Options) *Verifier {
	return &Verifier{
		pub:      pub,
		registry: registry,
		opts:     opts,
	}
}

// Verify — полная проверка одного токена:
//  1. разбор и подпись -> ErrTokenMalformed;
//  2. exp -> ErrTokenExpired;
//  3. jti в registry -> ErrTokenInvalidated;
//  4. иначе — ClaimSet из payload'а.
//
// Пустой вход — дефект вызывающего кода, а не невалидный credential:
// возвращается ErrKeyUnavailable (класс конфигурационной ошибки).
// Недоступность registry деградирует в тот же класс, а не в 401.
func (v *Verifier) Verify(ctx context.Context, token string) (*ClaimSet, error) {
	const op = "authtoken.Verify"

	cs, err := v.parse(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	revoked, err := v.registry.IsInvalidated(ctx, cs.TokenID)
	if err != nil {
		return nil, fmt.Errorf("%s: registry lookup: %v: %w", op, err, ErrKeyUnavailable)
	}

	if revoked {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalidated)
	}

	return cs, nil
}

// VerifyAndValidate — булевая обёртка для вызывающих, которым нужен только
// успех/отказ. Таксономия отказов при этом сохраняется внутри Verify
// для логирования и маппинга ошибок.
func (v *Verifier) VerifyAndValidate(ctx context.Context, token string) bool {
	_, err := v.Verify(ctx, token)
	return err == nil
}

// VerifySet проверяет набор токенов как единое целое: успех — только если
// пригоден каждый член. Разбор выполняется для всех членов до первого
// возврата ошибки: вызывающему (logout) нужны jti всех токенов, чтобы
// отозвать их одним атомарным вызовом.
func (v *Verifier) VerifySet(ctx context.Context, tokens ...string) ([]*ClaimSet, error) {
	const op = "authtoken.VerifySet"

	out := make([]*ClaimSet, 0, len(tokens))

	var firstErr error
	for _, t := range tokens {
		cs, err := v.parse(t)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if cs != nil {
			out = append(out, cs)
		}
	}

	if firstErr != nil {
		return nil, fmt.Errorf("%s: %w", op, firstErr)
	}

	for _, cs := range out {
		revoked, err := v.registry.IsInvalidated(ctx, cs.TokenID)
		if err != nil {
			return nil, fmt.Errorf("%s: registry lookup: %v: %w", op, err, ErrKeyUnavailable)
		}

		if revoked {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalidated)
		}
	}

	return out, nil
}

// parse — шаги 1-2 (структура, подпись, время) без обращения к registry.
func (v *Verifier) parse(token string) (*ClaimSet, error) {
	const op = "authtoken.parse"

	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%s: empty token: %w", op, ErrKeyUnavailable)
	}

	if v.pub == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrKeyUnavailable)
	}

	parseOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.opts.Leeway),
		jwt.WithIssuedAt(),
	}
	if v.opts.Issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(v.opts.Issuer))
	}
	if len(v.opts.Audience) > 0 {
		parseOpts = append(parseOpts, jwt.WithAudience(v.opts.Audience...))
	}

	parsed, err := jwt.ParseWithClaims(token, &wireClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return v.pub, nil
		},
		parseOpts...,
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrTokenMalformed)
	}

	claims, ok := parsed.Claims.(*wireClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenMalformed)
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenMalformed)
	}

	if claims.ID == "" {
		return nil, fmt.Errorf("%s: missing jti: %w", op, ErrTokenMalformed)
	}

	cs := &ClaimSet{
		UserID:   uid,
		Email:    claims.Email,
		UserType: claims.UserType,
		Extra:    claims.Extra,
		TokenID:  claims.ID,
	}
	if claims.IssuedAt != nil {
		cs.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	if claims.ExpiresAt != nil {
		cs.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}

	return cs, nil
}
