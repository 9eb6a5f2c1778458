package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tradesmap/internal/geocoding/domain"
)

const (
	defaultMemorySize = 4096
	redisKeyPrefix    = "geocode:postcode:"
)

// Store holds resolved coordinates keyed by normalized postal code.
type Store interface {
	Get(ctx context.Context, postalCode string) (domain.Coordinates, bool, error)
	Set(ctx context.Context, postalCode string, coords domain.Coordinates) error
}

type MemoryStore struct {
	lru *expirable.LRU[string, domain.Coordinates]
}

func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = defaultMemorySize
	}
	return &MemoryStore{lru: expirable.NewLRU[string, domain.Coordinates](size, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, postalCode string) (domain.Coordinates, bool, error) {
	coords, ok := s.lru.Get(postalCode)
	return coords, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, postalCode string, coords domain.Coordinates) error {
	s.lru.Add(postalCode, coords)
	return nil
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, postalCode string) (domain.Coordinates, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+postalCode).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Coordinates{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, false, err
	}
	var coords domain.Coordinates
	if err := json.Unmarshal(raw, &coords); err != nil {
		return domain.Coordinates{}, false, err
	}
	return coords, true, nil
}

func (s *RedisStore) Set(ctx context.Context, postalCode string, coords domain.Coordinates) error {
	raw, err := json.Marshal(coords)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+postalCode, raw, s.ttl).Err()
}
