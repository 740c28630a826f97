package invalidation

import (
	"context"
	"sync"
	"time"
)

type memoryRegistry struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // jti -> естественное истечение токена
}

// NewMemoryRegistry — реестр в памяти процесса: для тестов и локального
// запуска в один узел. Семантика идентична Redis-реализации; общей
// authority между процессами, разумеется, не даёт.
func NewMemoryRegistry() Registry {
	return &memoryRegistry{revoked: make(map[string]time.Time)}
}

// Invalidate фиксирует весь набор под одной блокировкой — пара
// access/refresh становится видимой читателям одновременно.
func (m *memoryRegistry) Invalidate(_ context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range records {
		m.revoked[rec.TokenID] = rec.ExpiresAt
	}

	return nil
}

func (m *memoryRegistry) IsInvalidated(_ context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	exp, ok := m.revoked[tokenID]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}

	// Запись пережила естественное истечение токена — лениво подчищаем.
	if time.Now().UTC().After(exp) {
		m.mu.Lock()
		delete(m.revoked, tokenID)
		m.mu.Unlock()
		return false, nil
	}

	return true, nil
}

func (m *memoryRegistry) Close() error { return nil }
