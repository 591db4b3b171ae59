package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON values and the rating aggregates in Redis.
type Cache struct {
	R *redis.Client
}

// GetJSON decodes key into v. found is false on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	b, err := c.R.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, b, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.R.Del(ctx, keys...).Err()
}

// MarkProcessed claims eventID for service. It returns false if the event
// was already claimed.
func (c *Cache) MarkProcessed(ctx context.Context, service, eventID string) (bool, error) {
	return c.R.SetNX(ctx, fmt.Sprintf(KeyDedup, service, eventID), "1", TTLDedup).Result()
}

// Unmark releases a claim so a redelivered event is processed again.
func (c *Cache) Unmark(ctx context.Context, service, eventID string) error {
	return c.R.Del(ctx, fmt.Sprintf(KeyDedup, service, eventID)).Err()
}

// Reviews are append-only, so a lower count than the stored one is a
// stale snapshot and is dropped.
var setRatingScript = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'count') or '-1')
if tonumber(ARGV[1]) < cur then
	return 0
end
redis.call('HSET', KEYS[1], 'count', ARGV[1], 'sum', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// SetRatingAggregate stores a fresh count and sum for the product unless a
// newer snapshot is already there. stored is false when the write was dropped.
func (c *Cache) SetRatingAggregate(ctx context.Context, productID string, count, sum int64) (stored bool, err error) {
	n, err := setRatingScript.Run(ctx, c.R, []string{fmt.Sprintf(KeyRating, productID)},
		count, sum, TTLRating.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RatingAggregate returns the running count and sum for a product.
func (c *Cache) RatingAggregate(ctx context.Context, productID string) (count, sum int64, found bool, err error) {
	vals, err := c.R.HGetAll(ctx, fmt.Sprintf(KeyRating, productID)).Result()
	if err != nil {
		return 0, 0, false, err
	}
	if len(vals) == 0 {
		return 0, 0, false, nil
	}
	if count, err = strconv.ParseInt(vals["count"], 10, 64); err != nil {
		return 0, 0, false, fmt.Errorf("rating count: %w", err)
	}
	if sum, err = strconv.ParseInt(vals["sum"], 10, 64); err != nil {
		return 0, 0, false, fmt.Errorf("rating sum: %w", err)
	}
	return count, sum, true, nil
}

func (c *Cache) Ping(ctx context.Context) error { return c.R.Ping(ctx).Err() }
