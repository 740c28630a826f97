package invalidation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRedisRegistry_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisRegistry("not-a-redis-url", "", time.Second)
	require.Error(t, err)
}

func TestLookupContext_SetsDeadline(t *testing.T) {
	t.Parallel()

	ctx, cancel := lookupContext(context.Background(), 2*time.Second)
	defer cancel()

	dl, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(2*time.Second), dl, 100*time.Millisecond)
}

func TestLookupContext_ZeroIsPassthrough(t *testing.T) {
	t.Parallel()

	parent := context.Background()

	ctx, cancel := lookupContext(parent, 0)
	defer cancel()

	_, ok := ctx.Deadline()
	require.False(t, ok)
	require.Equal(t, parent, ctx)
}

func TestLookupContext_TighterCallerDeadlineWins(t *testing.T) {
	t.Parallel()

	parent, parentCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer parentCancel()

	// Собственный таймаут реестра шире родительского: действует родительский.
	ctx, cancel := lookupContext(parent, time.Minute)
	defer cancel()

	parentDL, _ := parent.Deadline()
	dl, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, parentDL, dl, time.Millisecond)
}
