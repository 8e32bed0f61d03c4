package middlewares

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter counts requests in redis so the limit holds across
// replicas. Redis errors fail open.
type RedisRateLimiter struct {
	client  *redis.Client
	log     *slog.Logger
	prefix  string
	limit   int
	window  time.Duration
	timeout time.Duration
}

func NewRedisRateLimiter(client *redis.Client, log *slog.Logger, limit int, window time.Duration) *RedisRateLimiter {
	if window <= 0 {
		window = time.Minute
	}

	return &RedisRateLimiter{
		client:  client,
		log:     log,
		prefix:  "bloghub:ratelimit:",
		limit:   limit,
		window:  window,
		timeout: 250 * time.Millisecond,
	}
}

func (rl *RedisRateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			key = clientIP(c)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), rl.timeout)
		defer cancel()

		redisKey := rl.prefix + key

		counter, err := rl.client.Incr(ctx, redisKey).Result()

		if err != nil {
			rl.log.Warn("rate limiter redis incr failed", "err", err)
			c.Next()
			return
		}

		if counter == 1 {
			if err := rl.client.Expire(ctx, redisKey, rl.window).Err(); err != nil {
				rl.log.Warn("rate limiter redis expire failed", "err", err)
			}
		}

		if counter > int64(rl.limit) {
			ttl, err := rl.client.TTL(ctx, redisKey).Result()

			if err != nil || ttl <= 0 {
				ttl = rl.window
			}

			rejectRateLimited(c, int(ttl.Seconds()))
			return
		}

		c.Next()
	}
}
