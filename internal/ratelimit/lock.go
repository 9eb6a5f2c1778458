package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	redis "github.com/redis/go-redis/v9"
)

// Deletes KEYS[1] only while it still holds ARGV[1].
const releaseIfOwnerScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const keySyncLock = "profile:sync:lock:%s"

var errEmptyUID = errors.New("sync lock uid is empty")

// syncLock serializes profile sync pipelines for one uid across instances.
// Holders are identified by a ULID token so an expired holder cannot release
// a lock that has since moved on.
type syncLock struct {
	client  *redis.Client
	release *redis.Script
	ttl     time.Duration
}

func newSyncLock(client *redis.Client, ttl time.Duration) *syncLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &syncLock{
		client:  client,
		release: redis.NewScript(releaseIfOwnerScript),
		ttl:     ttl,
	}
}

func syncLockKey(uid string) string {
	return fmt.Sprintf(keySyncLock, strings.TrimSpace(uid))
}

func (l *syncLock) Acquire(ctx context.Context, uid string) (string, bool, error) {
	if strings.TrimSpace(uid) == "" {
		return "", false, errEmptyUID
	}
	token := ulid.Make().String()
	acquired, err := l.client.SetNX(ctx, syncLockKey(uid), token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !acquired {
		return "", false, nil
	}
	return token, true, nil
}

func (l *syncLock) Release(ctx context.Context, uid, token string) error {
	if token == "" || strings.TrimSpace(uid) == "" {
		return nil
	}
	return l.release.Run(ctx, l.client, []string{syncLockKey(uid)}, token).Err()
}
