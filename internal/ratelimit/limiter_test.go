package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tradesmap/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, burst int) *AccountLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.Config{RateLimit: config.RateLimitConfig{
		Enabled:     true,
		SignInRate:  0.001,
		SignInBurst: burst,
		SyncLockTTL: time.Minute,
	}}
	return NewAccountLimiter(cfg, client, zap.NewNop())
}

func TestAllowSignInExhaustsBurst(t *testing.T) {
	l := newTestLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.AllowSignIn(ctx, "a@b.com")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.AllowSignIn(ctx, "A@B.com")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	res, err = l.AllowSignIn(ctx, "other@b.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestSyncLockIsExclusive(t *testing.T) {
	l := newTestLimiter(t, 1)
	ctx := context.Background()

	token, ok, err := l.TryLockSync(ctx, "uid-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLockSync(ctx, "uid-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.ReleaseSync(ctx, "uid-1", token))
	_, ok, err = l.TryLockSync(ctx, "uid-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	l := NewAccountLimiter(config.Config{}, nil, zap.NewNop())
	res, err := l.AllowSignIn(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	_, ok, err := l.TryLockSync(context.Background(), "uid")
	require.NoError(t, err)
	assert.True(t, ok)

	var nilLimiter *AccountLimiter
	assert.False(t, nilLimiter.Enabled())
}
