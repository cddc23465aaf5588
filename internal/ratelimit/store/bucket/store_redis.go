package bucket

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"kycgate/internal/ratelimit/models"
)

// slidingWindowScript trims the window, then admits the request when there is
// room. It returns {allowed, count, oldest_score_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  count = count + 1
  allowed = 1
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestScore = now
if #oldest == 2 then
  oldestScore = tonumber(oldest[2])
end
return {allowed, count, tostring(oldestScore)}
`)

// RedisBucketStore shares sliding windows between gateway instances using one
// sorted set per key.
type RedisBucketStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedisBucketStore(client redis.UniversalClient) *RedisBucketStore {
	return &RedisBucketStore{client: client, now: time.Now}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	now := s.now()
	nowMs := now.UnixMilli()
	windowMs := limit.Window.Milliseconds()

	res, err := slidingWindowScript.Run(ctx, s.client, []string{key},
		nowMs, windowMs, limit.RequestsPerWindow, strconv.FormatInt(now.UnixNano(), 10)+"-"+uuid.NewString(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	allowed, _ := res[0].(int64)
	count, _ := res[1].(int64)
	oldestRaw, _ := res[2].(string)
	oldestMs, err := strconv.ParseFloat(oldestRaw, 64)
	if err != nil {
		return nil, fmt.Errorf("rate limit script: parse oldest score: %w", err)
	}

	resetAt := time.UnixMilli(int64(oldestMs)).Add(limit.Window)
	result := &models.Result{
		Allowed:   allowed == 1,
		Limit:     limit.RequestsPerWindow,
		Remaining: max(0, limit.RequestsPerWindow-int(count)),
		ResetAt:   resetAt,
	}
	if !result.Allowed {
		result.Remaining = 0
		result.RetryAfter = models.RetryAfterSeconds(resetAt.Sub(now))
	}
	return result, nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
