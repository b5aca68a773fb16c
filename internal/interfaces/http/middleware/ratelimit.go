package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter counts requests per key in fixed windows
type Limiter interface {
	// Allow records one request for key and returns the requests left in the
	// current window. ok is false once the limit is exceeded.
	Allow(ctx context.Context, key string) (remaining int, ok bool, err error)
	Limit() int
}

// WindowLimiter is an in-process fixed-window limiter
type WindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*bucket
}

type bucket struct {
	count   int
	resetAt time.Time
}

// NewWindowLimiter allows limit requests per key per window
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*bucket),
	}
}

// Allow implements Limiter
func (l *WindowLimiter) Allow(_ context.Context, key string) (int, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || !now.Before(w.resetAt) {
		l.evict(now)
		w = &bucket{resetAt: now.Add(l.window)}
		l.clients[key] = w
	}
	w.count++
	if w.count > l.limit {
		return 0, false, nil
	}
	return l.limit - w.count, true, nil
}

// Limit implements Limiter
func (l *WindowLimiter) Limit() int { return l.limit }

// evict drops closed windows; called with mu held
func (l *WindowLimiter) evict(now time.Time) {
	for key, w := range l.clients {
		if !now.Before(w.resetAt) {
			delete(l.clients, key)
		}
	}
}

// RedisLimiter is a fixed-window limiter shared by every instance
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter allows limit requests per key per window
func NewRedisLimiter(client redis.Cmdable, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "crm:ratelimit:", limit: limit, window: window}
}

// Allow implements Limiter
func (l *RedisLimiter) Allow(ctx context.Context, key string) (int, bool, error) {
	k := l.prefix + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	count := int(incr.Val())
	if count > l.limit {
		return 0, false, nil
	}
	return l.limit - count, true, nil
}

// Limit implements Limiter
func (l *RedisLimiter) Limit() int { return l.limit }

// RateLimit limits requests per client IP. Limiter failures let the
// request through.
func RateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		remaining, ok, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.GetGinLogger(c, log).Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				logger.GetRequestID(c.Request.Context()),
			))
			return
		}
		c.Next()
	}
}
