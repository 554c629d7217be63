package middlewares

import (
	"time"

	"note-sync/cmd/server/handlers/httperr"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// SyncLimiter caps how often a route may be hit within window. The bucket is
// keyed by route, not by caller: a sync pass is global to the agent, so every
// client shares the same budget. perWindow <= 0 disables the limiter.
func SyncLimiter(perWindow int, window time.Duration) fiber.Handler {
	if perWindow <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return limiter.New(limiter.Config{
		Max:        perWindow,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Method() + " " + c.Route().Path
		},
		LimitReached: func(*fiber.Ctx) error {
			return httperr.Fail(httperr.ErrTooManyRequests)
		},
	})
}
