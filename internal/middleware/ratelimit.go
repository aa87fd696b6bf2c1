package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// MutationRateLimit caps write traffic per principal using a Redis
// counter with a one-minute window. Without Redis it is a no-op, and it
// fails open on cache errors.
func MutationRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 30
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		caller, _ := c.Locals(PrincipalIDKey).(string)
		if caller == "" {
			caller = c.IP()
		}
		key := "rl:mutation:" + caller
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		} else if ttl, err := cache.TTL(c.UserContext(), key).Result(); err == nil && ttl < 0 {
			// A counter without an expiry would throttle forever. It can
			// happen when the process dies between Incr and Expire; give
			// the stray counter a window so it drains.
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
