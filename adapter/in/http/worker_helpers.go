package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"purchase_worker/core/domain"
	"purchase_worker/core/service/extraction"
	"purchase_worker/pkg/apperr"
)

// =============================================================================
// Standardized Response Helpers
// =============================================================================

// APIResponse represents a standard API response. Errors use the
// middleware.ErrorResponse envelope.
type APIResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SuccessResponse sends a standardized JSON success response
func SuccessResponse(c *fiber.Ctx, data any) error {
	requestID, _ := c.Locals("request_id").(string)
	return c.JSON(APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// Request Helpers
// =============================================================================

// parseEmailBody decodes a JSON EmailContent body.
func parseEmailBody(c *fiber.Ctx) (*domain.EmailContent, error) {
	if len(c.Body()) == 0 {
		return nil, apperr.MissingField("body")
	}
	var email domain.EmailContent
	if err := c.BodyParser(&email); err != nil {
		return nil, apperr.BadRequest("invalid email JSON").WithError(err)
	}
	if email.From == "" && email.Subject == "" && !email.HasBody() {
		return nil, apperr.ValidationFailed("email has no sender, subject or body")
	}
	return &email, nil
}

// processOptions reads ?llm=force|off|auto and the optional message id.
func processOptions(c *fiber.Ctx) (extraction.ProcessOptions, error) {
	opts := extraction.ProcessOptions{
		MessageID: c.Get("X-Message-ID", c.Query("message_id")),
		SkipCache: c.QueryBool("nocache", false),
	}

	switch strings.ToLower(c.Query("llm", "auto")) {
	case "auto", "":
	case "force":
		opts.ForceLLM = true
	case "off":
		opts.DisableLLM = true
	default:
		return opts, apperr.InvalidInput("llm", "must be one of auto, force, off")
	}
	return opts, nil
}
