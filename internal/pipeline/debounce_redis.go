package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisDebouncePrefix = "timeroom:debounce:"

// RedisDebouncer keeps debounce state in Redis so a restart does not replay
// every tag currently in the field as a fresh transition. Keys expire via
// TTL, so no sweep is needed.
type RedisDebouncer struct {
	client *redis.Client
	window time.Duration
}

func NewRedisDebouncer(client *redis.Client, window time.Duration) *RedisDebouncer {
	return &RedisDebouncer{client: client, window: window}
}

func (d *RedisDebouncer) Accept(ctx context.Context, epc string, antenna int, now time.Time) (bool, error) {
	key := redisDebouncePrefix + debounceKey(epc, antenna)

	// SET NX PX is atomic: the first caller inside the window wins.
	ok, err := d.client.SetNX(ctx, key, now.UnixMilli(), d.window).Result()
	if err != nil {
		return false, fmt.Errorf("debounce setnx: %w", err)
	}
	return ok, nil
}

func (d *RedisDebouncer) Reset(ctx context.Context) error {
	iter := d.client.Scan(ctx, 0, redisDebouncePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := d.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("debounce reset del: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("debounce reset scan: %w", err)
	}
	return nil
}
