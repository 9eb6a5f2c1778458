package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tradesmap/internal/config"
	"go.uber.org/zap"
)

const keySignIn = "auth:sign-in:%s"

// AccountLimiter throttles credential attempts and serializes profile sync per uid
// across instances. A nil or disabled limiter allows everything.
type AccountLimiter struct {
	enabled bool
	log     *zap.Logger

	bucket *TokenBucket
	lock   *syncLock

	signInRate  float64
	signInBurst int
}

func NewAccountLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) *AccountLimiter {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled || client == nil {
		return &AccountLimiter{}
	}
	return &AccountLimiter{
		enabled:     true,
		log:         log.Named("ratelimit"),
		bucket:      NewTokenBucket(client),
		lock:        newSyncLock(client, limitCfg.SyncLockTTL),
		signInRate:  limitCfg.SignInRate,
		signInBurst: limitCfg.SignInBurst,
	}
}

func (l *AccountLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowSignIn consumes one attempt for key. Redis failures fail open.
func (l *AccountLimiter) AllowSignIn(ctx context.Context, key string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keySignIn, strings.ToLower(strings.TrimSpace(key))), l.signInRate, l.signInBurst)
	if err != nil {
		l.log.Warn("sign-in limiter unavailable", zap.Error(err))
		return &Result{Allowed: true}, err
	}
	return res, nil
}

func (l *AccountLimiter) TryLockSync(ctx context.Context, uid string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.lock.Acquire(ctx, uid)
}

func (l *AccountLimiter) ReleaseSync(ctx context.Context, uid, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.lock.Release(ctx, uid, token)
}
