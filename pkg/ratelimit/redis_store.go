package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis sorted set per key, scored by attempt
// time in nanoseconds. Pruning is a ZREMRANGEBYSCORE on every write; the whole
// set carries a TTL of one window so abandoned accounts clean themselves up.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed attempt store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "twofactor:attempts:"}
}

func (s *RedisStore) CountInWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	n, err := s.client.ZCount(ctx, s.prefix+key, "("+cutoff, "+inf").Result()
	if err != nil {
		return 0, errors.Join(ErrStoreUnavailable, err)
	}
	return int(n), nil
}

func (s *RedisStore) RecordAttempt(ctx context.Context, key string, now time.Time, window time.Duration) error {
	redisKey := s.prefix + key
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	score := float64(now.UnixNano())

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	// Unique member per attempt; the score carries the time
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: score, Member: uuid.NewString()})
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}
