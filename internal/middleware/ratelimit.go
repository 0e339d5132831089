package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
	"github.com/guestvoice/guestvoice-backend/internal/response"
)

// Limiter counts hits per key in fixed windows
type Limiter interface {
	// Allow records a hit and reports whether key is still within limit
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window limiter shared by every instance
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().UnixNano() / int64(l.window)
	redisKey := l.prefix + ":" + key + ":" + strconv.FormatInt(bucket, 10)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}

// MemoryLimiter is the in-process fallback when Redis is not configured
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*windowCount
	now     func() time.Time
}

type windowCount struct {
	start time.Time
	count int
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*windowCount),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= l.window {
		b = &windowCount{start: now}
		l.buckets[key] = b
		l.sweep(now)
	}
	b.count++
	return b.count <= l.limit, nil
}

// sweep drops expired windows; called with mu held
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.start) >= l.window {
			delete(l.buckets, k)
		}
	}
}

// NewLimiter picks the Redis limiter when a client is available
func NewLimiter(client *redis.Client, prefix string, limit int, window time.Duration) Limiter {
	if client != nil {
		return NewRedisLimiter(client, prefix, limit, window)
	}
	return NewMemoryLimiter(limit, window)
}

// RateLimit rejects requests over the limit with 429. keyFunc derives the bucket key.
// Limiter failures let the request through.
func RateLimit(limiter Limiter, keyFunc func(c *fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, err := limiter.Allow(c.UserContext(), keyFunc(c))
		if err != nil {
			logger.FromContext(c.UserContext()).Warn("Rate limiter unavailable", zap.Error(err))
			return c.Next()
		}
		if !allowed {
			return response.Fail(c, response.ErrCodeTooManyRequests, "Too many attempts, please try again later")
		}
		return c.Next()
	}
}
