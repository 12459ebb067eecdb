package replay

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard implements Guard on Redis, one key per accepted code with a TTL
// equal to the validity window. Expiry replaces explicit pruning: once the
// key is gone the code has aged out. The now parameter is accepted for
// interface compatibility; Redis expires keys on its own clock.
type RedisGuard struct {
	client *redis.Client
	window time.Duration
	prefix string
}

// NewRedisGuard creates a Redis-backed guard with the given validity window.
func NewRedisGuard(client *redis.Client, window time.Duration) (*RedisGuard, error) {
	if window <= 0 {
		return nil, ErrInvalidWindow
	}
	return &RedisGuard{
		client: client,
		window: window,
		prefix: "twofactor:used:",
	}, nil
}

func (g *RedisGuard) key(accountID, code string) string {
	return g.prefix + accountID + ":" + code
}

func (g *RedisGuard) IsUsed(ctx context.Context, accountID, code string, now time.Time) (bool, error) {
	if accountID == "" {
		return false, ErrAccountIDRequired
	}
	if code == "" {
		return false, ErrCodeRequired
	}

	n, err := g.client.Exists(ctx, g.key(accountID, code)).Result()
	if err != nil {
		return false, errors.Join(ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

func (g *RedisGuard) MarkUsed(ctx context.Context, accountID, code string, now time.Time) error {
	if accountID == "" {
		return ErrAccountIDRequired
	}
	if code == "" {
		return ErrCodeRequired
	}

	if err := g.client.SetNX(ctx, g.key(accountID, code), "1", g.window).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (g *RedisGuard) Clear(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrAccountIDRequired
	}

	var cursor uint64
	pattern := g.prefix + accountID + ":*"
	for {
		keys, next, err := g.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return errors.Join(ErrStoreUnavailable, err)
		}
		if len(keys) > 0 {
			if err := g.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Join(ErrStoreUnavailable, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
