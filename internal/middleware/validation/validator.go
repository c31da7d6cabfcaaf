package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const DefaultMaxQueryLength = 2000

type Config struct {
	// MaxQueryLength bounds the `text` query parameter on the read
	// endpoints. User questions are a sentence or two; anything longer is
	// abuse or a broken client.
	MaxQueryLength int
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = DefaultMaxQueryLength
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost {
			contentType := c.Get("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"status":  fiber.StatusUnsupportedMediaType,
					"message": "Chỉ hỗ trợ application/json",
				})
			}
		}

		if text := c.Query("text"); text != "" {
			if len(text) > cfg.MaxQueryLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"status":  fiber.StatusBadRequest,
					"message": "Câu hỏi quá dài, vui lòng rút gọn",
				})
			}
		}

		return c.Next()
	}
}
