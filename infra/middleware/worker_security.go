package middleware

import (
	"strings"

	"purchase_worker/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// SecurityHeaders adds security headers to all responses
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Prevent MIME type sniffing
		c.Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		c.Set("X-Frame-Options", "DENY")

		// Control referrer information
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// JSON API only
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Remove server header
		c.Set("Server", "")

		return c.Next()
	}
}

// ValidateContentType rejects POST bodies whose Content-Type is not one of
// allowed (prefix match, so parameters like charset are accepted).
func ValidateContentType(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost || len(c.Body()) == 0 {
			return c.Next()
		}

		contentType := strings.ToLower(c.Get(fiber.HeaderContentType))
		if contentType == "" {
			return apperr.MissingField("Content-Type")
		}
		for _, t := range allowed {
			if strings.HasPrefix(contentType, t) {
				return c.Next()
			}
		}
		return apperr.UnsupportedMediaType(contentType)
	}
}
