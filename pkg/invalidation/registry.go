// invalidation — реестр отозванных идентификаторов токенов (jti).
//
// Registry — единая логическая authority: выпускающий сервис пишет в неё
// при logout, все сервисы читают при каждой верификации. Записи только
// создаются и никогда не мутируются; сборка мусора — по естественному
// истечению исходного токена (TTL ключа).
//
// Гонка "верификация началась до завершения logout" допускается как
// ограниченное окно устаревания; блокировками она не устраняется.
package invalidation

import (
	"context"
	"time"
)

// Record — факт отзыва одного токена. ExpiresAt — естественное истечение
// исходного токена: дольше этого момента запись хранить незачем.
type Record struct {
	TokenID   string
	ExpiresAt time.Time
}

// Registry записывает и проверяет отзыв токенов.
type Registry interface {
	// Invalidate помечает весь набор записей отозванным как одну
	// неделимую запись: частичный отзыв пары access/refresh — баг
	// корректности, вызывающий либо получает всё, либо ничего.
	Invalidate(ctx context.Context, records ...Record) error

	// IsInvalidated отвечает, отозван ли токен с данным jti.
	IsInvalidated(ctx context.Context, tokenID string) (bool, error)

	// Close освобождает ресурсы хранилища.
	Close() error
}
