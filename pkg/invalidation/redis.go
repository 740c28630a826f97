package invalidation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRegistry struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisRegistry создаёт реестр поверх Redis из URL
// (например, redis://:pass@host:6379/0). Пустой prefix — "auth:jti:".
// lookupTimeout — deadline каждой операции реестра; значение <=0 оставляет
// только deadline вызывающего. Превышение деградирует в ошибку операции
// (у верификатора — серверный класс), а не в молчаливый pass.
// Redis здесь — общая lookup-способность для всех сервисов; реплицируемый
// леджер сознательно не строится (non-goal спецификации развертывания).
func NewRedisRegistry(redisURL, prefix string, lookupTimeout time.Duration) (Registry, error) {
	const op = "invalidation.NewRedisRegistry"

	if prefix == "" {
		prefix = "auth:jti:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisRegistry{rdb: rdb, prefix: prefix, timeout: lookupTimeout}, nil
}

func (r *redisRegistry) key(tokenID string) string { return r.prefix + tokenID }

// lookupContext навешивает собственный deadline реестра, если он задан.
func lookupContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, d)
}

// Invalidate пишет весь набор jti одним MULTI/EXEC-пайплайном: либо
// фиксируются все ключи, либо ни один. TTL каждого ключа — до естественного
// истечения исходного токена, дальше Redis удалит запись сам.
func (r *redisRegistry) Invalidate(ctx context.Context, records ...Record) error {
	const op = "invalidation.redis.Invalidate"

	if len(records) == 0 {
		return nil
	}

	ctx, cancel := lookupContext(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()

	pipe := r.rdb.TxPipeline()
	for _, rec := range records {
		ttl := rec.ExpiresAt.Sub(now)
		if ttl <= 0 {
			// Токен уже истёк естественно; минимальный TTL закрывает
			// окно рассинхронизации часов.
			ttl = time.Minute
		}
		pipe.Set(ctx, r.key(rec.TokenID), "1", ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *redisRegistry) IsInvalidated(ctx context.Context, tokenID string) (bool, error) {
	const op = "invalidation.redis.IsInvalidated"

	ctx, cancel := lookupContext(ctx, r.timeout)
	defer cancel()

	n, err := r.rdb.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return n > 0, nil
}

func (r *redisRegistry) Close() error { return r.rdb.Close() }
