package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/gema-grading-api/internal/observability"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// RateLimit throttles requests per authenticated user, falling back to the
// client IP for anonymous callers.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}
	retryAfter := strconv.Itoa(int(window.Round(time.Second).Seconds()))

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return identifier + ":" + limiterKey(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			observability.RequestsThrottled().WithLabelValues(identifier).Inc()
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many requests", nil)
		},
	})
}

func limiterKey(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(uint); ok && id > 0 {
		return "user:" + strconv.FormatUint(uint64(id), 10)
	}
	return "ip:" + c.IP()
}
