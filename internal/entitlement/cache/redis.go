package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	id "kycgate/pkg/domain"
)

var cacheLookupDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "kycgate_entitlement_cache_lookup_duration_ms",
	Help:    "Latency of entitlement cache lookups in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	keyPrefix     = "kycgate:entitlements:"
	generationKey = keyPrefix + "generation"
	versionPrefix = keyPrefix + "v:"
	// versionTTL outlives any load so a version key cannot lapse mid-request.
	versionTTL = 24 * time.Hour
)

// conditionalSetScript writes the entry only while the generation and the
// user's version still match what the caller read.
var conditionalSetScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
local ver = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] or ver ~= ARGV[2] then
  return 0
end
redis.call('SET', KEYS[3], ARGV[3], 'PX', ARGV[4])
return 1
`)

// RedisCache shares entitlement sets across gateway instances. Data keys embed
// the generation (bumped by Flush) and the user's version (bumped by Delete),
// so superseded entries become unreachable and age out on their own TTL.
type RedisCache struct {
	client redis.UniversalClient
}

func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

func versionKey(userID id.UserID) string {
	return versionPrefix + userID.String()
}

func dataKey(userID id.UserID, v Version) string {
	return keyPrefix + strconv.FormatInt(v.Generation, 10) + ":" +
		strconv.FormatInt(v.User, 10) + ":" + userID.String()
}

func (c *RedisCache) version(ctx context.Context, userID id.UserID) (Version, error) {
	vals, err := c.client.MGet(ctx, generationKey, versionKey(userID)).Result()
	if err != nil {
		return Version{}, fmt.Errorf("read cache version: %w", err)
	}
	gen, err := parseCounter(vals[0])
	if err != nil {
		return Version{}, err
	}
	user, err := parseCounter(vals[1])
	if err != nil {
		return Version{}, err
	}
	return Version{Generation: gen, User: user}, nil
}

func parseCounter(v any) (int64, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected cache counter type %T", v)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cache counter: %w", err)
	}
	return n, nil
}

func (c *RedisCache) Get(ctx context.Context, userID id.UserID) (Entry, bool, error) {
	start := time.Now()
	defer func() {
		cacheLookupDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	version, err := c.version(ctx, userID)
	if err != nil {
		return Entry{}, false, err
	}
	raw, err := c.client.Get(ctx, dataKey(userID, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{Version: version}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read entitlements: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Corrupt entries are treated as misses and overwritten on the next Set.
		return Entry{Version: version}, false, nil
	}
	entry.Version = version
	return entry, true, nil
}

func (c *RedisCache) Set(ctx context.Context, userID id.UserID, entry Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entitlements: %w", err)
	}
	keys := []string{generationKey, versionKey(userID), dataKey(userID, entry.Version)}
	stored, err := conditionalSetScript.Run(ctx, c.client, keys,
		strconv.FormatInt(entry.Version.Generation, 10),
		strconv.FormatInt(entry.Version.User, 10),
		raw,
		ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("write entitlements: %w", err)
	}
	if stored == 0 {
		return ErrStale
	}
	return nil
}

// Delete bumps the user's version; the previous entry is no longer addressed.
func (c *RedisCache) Delete(ctx context.Context, userID id.UserID) error {
	key := versionKey(userID)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, versionTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("bump cache version: %w", err)
	}
	return nil
}

func (c *RedisCache) Flush(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}
