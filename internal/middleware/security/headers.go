package security

import (
	"github.com/gofiber/fiber/v2"
)

// Headers sets baseline security headers. The service is a JSON API, so
// there is no CSP; browsers should never render its responses as HTML.
func Headers(production bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if production {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		return c.Next()
	}
}
