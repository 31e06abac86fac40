package security

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// BookingRateLimit protects booking creation from burst abuse. Limits are
// tracked per authenticated user when present, per client IP otherwise.
func (r *RateLimiter) BookingRateLimit() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: &redisStore{redis: r.redis, limit: 10, window: time.Minute},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			userID := c.Get("user_id")
			if userID != nil {
				return fmt.Sprintf("user:%s", userID), nil
			}
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(429, map[string]string{
				"error": "Too many booking attempts. Please try again later.",
			})
		},
	})
}

// redisStore is a fixed-window counter shared across instances.
type redisStore struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func (s *redisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("ratelimit:booking:%s:%d", identifier, time.Now().Unix()/int64(s.window.Seconds()))

	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		// Fail open: rate limiting must not take bookings down with it.
		return true, nil
	}
	if count == 1 {
		s.redis.Expire(ctx, key, s.window)
	}

	return count <= s.limit, nil
}
