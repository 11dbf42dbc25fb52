package ratelimit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/thusa/managed-reports/pkg/util"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *fiber.Ctx) string

// GlobalKey counts every request against one shared bucket.
func GlobalKey(*fiber.Ctx) string { return "global" }

// ClientIPKey counts requests per client IP.
func ClientIPKey(c *fiber.Ctx) string { return "ip:" + c.IP() }

// Middleware limits requests per key. Limiter failures let the request
// through.
func Middleware(limiter Limiter, max int, key KeyFunc, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == nil {
		key = GlobalKey
	}
	limit := strconv.Itoa(max)

	return func(c *fiber.Ctx) error {
		bucket := key(c)
		res, err := limiter.Allow(c.UserContext(), bucket)
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("key", bucket), zap.Error(err))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", limit)
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if !res.Allowed {
			return apperrors.NewTooManyRequests(res.RetryAfter)
		}
		return c.Next()
	}
}
