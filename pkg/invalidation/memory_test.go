package invalidation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry_InvalidateAndLookup(t *testing.T) {
	t.Parallel()

	reg := NewMemoryRegistry()
	ctx := context.Background()

	accessJTI := uuid.NewString()
	refreshJTI := uuid.NewString()

	// До отзыва оба jti чисты.
	for _, jti := range []string{accessJTI, refreshJTI} {
		revoked, err := reg.IsInvalidated(ctx, jti)
		require.NoError(t, err)
		require.False(t, revoked)
	}

	exp := time.Now().UTC().Add(time.Hour)
	require.NoError(t, reg.Invalidate(ctx,
		Record{TokenID: accessJTI, ExpiresAt: exp},
		Record{TokenID: refreshJTI, ExpiresAt: exp.Add(23 * time.Hour)},
	))

	for _, jti := range []string{accessJTI, refreshJTI} {
		revoked, err := reg.IsInvalidated(ctx, jti)
		require.NoError(t, err)
		require.True(t, revoked)
	}

	// Посторонний jti не затронут.
	revoked, err := reg.IsInvalidated(ctx, uuid.NewString())
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryRegistry_EmptyBatchIsNoop(t *testing.T) {
	t.Parallel()

	reg := NewMemoryRegistry()
	require.NoError(t, reg.Invalidate(context.Background()))
}

func TestMemoryRegistry_LazyExpiry(t *testing.T) {
	t.Parallel()

	reg := NewMemoryRegistry()
	ctx := context.Background()

	jti := uuid.NewString()
	// Запись с истечением в прошлом: токен и так мёртв, реестру держать
	// её незачем.
	require.NoError(t, reg.Invalidate(ctx, Record{
		TokenID:   jti,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}))

	revoked, err := reg.IsInvalidated(ctx, jti)
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestMemoryRegistry_Close(t *testing.T) {
	t.Parallel()

	reg := NewMemoryRegistry()
	require.NoError(t, reg.Close())
}
