// Package redisstore keeps quota entries in Redis hashes with native key
// expiry, for deployments that run more than one instance.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/examgen/internal/ratelimit"
)

const keyPrefix = "examgen:quota:"

// upsertScript starts a new window when the key is missing or its window
// has ended, otherwise increments. Returns {count, window_start, expires_at}
// in unix milliseconds.
var upsertScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local exp = tonumber(redis.call('HGET', KEYS[1], 'expires_at'))
if exp == nil or exp <= now then
  redis.call('HSET', KEYS[1], 'count', 1, 'window_start', ARGV[1], 'expires_at', now + window)
  redis.call('PEXPIRE', KEYS[1], window)
  return {1, now, now + window}
end
local count = redis.call('HINCRBY', KEYS[1], 'count', 1)
local start = tonumber(redis.call('HGET', KEYS[1], 'window_start'))
return {count, start, exp}
`)

// Store is a ratelimit.QuotaStore backed by Redis.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

var _ ratelimit.QuotaStore = (*Store)(nil)

// New returns a store over an existing client.
func New(client *redis.Client) *Store {
	return &Store{client: client, now: time.Now}
}

// Dial parses url, connects and pings the server.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (s *Store) Get(ctx context.Context, key string) (*ratelimit.QuotaEntry, error) {
	vals, err := s.client.HMGet(ctx, keyPrefix+key, "count", "window_start", "expires_at").Result()
	if err != nil {
		return nil, fmt.Errorf("get quota entry: %w", err)
	}
	if vals[0] == nil {
		return nil, nil
	}

	nums := make([]int64, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("get quota entry: malformed field %d", i)
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("get quota entry: %w", err)
		}
		nums[i] = n
	}

	e := entry(key, nums[0], nums[1], nums[2])
	if !e.Live(s.now()) {
		return nil, nil
	}
	return e, nil
}

func (s *Store) UpsertIncrement(ctx context.Context, key string, now time.Time, window time.Duration) (*ratelimit.QuotaEntry, error) {
	out, err := upsertScript.Run(ctx, s.client, []string{keyPrefix + key}, now.UnixMilli(), window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("upsert quota entry: %w", err)
	}
	if len(out) != 3 {
		return nil, errors.New("upsert quota entry: unexpected script reply")
	}
	return entry(key, out[0], out[1], out[2]), nil
}

// SweepExpired is a no-op: Redis expires keys on its own.
func (s *Store) SweepExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func entry(key string, count, start, expires int64) *ratelimit.QuotaEntry {
	return &ratelimit.QuotaEntry{
		Key:         key,
		Count:       int(count),
		WindowStart: time.UnixMilli(start),
		ExpiresAt:   time.UnixMilli(expires),
	}
}
