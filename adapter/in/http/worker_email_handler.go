package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"purchase_worker/adapter/out/mailfile"
	"purchase_worker/core/domain"
	"purchase_worker/core/service/extraction"
	"purchase_worker/infra/middleware"
	"purchase_worker/pkg/apperr"
)

const mimeRFC822 = "message/rfc822"

type EmailHandler struct {
	service *extraction.Service
}

func NewEmailHandler(service *extraction.Service) *EmailHandler {
	return &EmailHandler{service: service}
}

// Register mounts the extraction routes. guards run in front of the routes
// that may call the model.
func (h *EmailHandler) Register(app fiber.Router, guards ...fiber.Handler) {
	v1 := app.Group("/v1")

	emails := v1.Group("/emails", middleware.ValidateContentType(fiber.MIMEApplicationJSON, mimeRFC822, fiber.MIMETextPlain))
	emails.Post("/parse", h.Parse)
	emails.Post("/extract", guarded(guards, h.Extract)...)
	emails.Post("/raw", guarded(guards, h.Raw)...)

	v1.Get("/extractions/:id", middleware.ValidateUUID("id"), h.GetExtraction)
}

func guarded(guards []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	chain := make([]fiber.Handler, 0, len(guards)+1)
	chain = append(chain, guards...)
	return append(chain, handler)
}

// ParseResponse is the deterministic-only result.
type ParseResponse struct {
	Parsed        *domain.ParsedEmail           `json:"parsed"`
	Forwarded     *domain.ForwardedEmailContent `json:"forwarded,omitempty"`
	ForwarderNote string                        `json:"forwarderNote,omitempty"`
	NeedsReview   bool                          `json:"needsReview"`
}

// Parse runs the deterministic pipeline only. It never calls the model.
func (h *EmailHandler) Parse(c *fiber.Ctx) error {
	email, err := parseEmailBody(c)
	if err != nil {
		return err
	}

	res := h.service.Pipeline().Process(email)
	return SuccessResponse(c, ParseResponse{
		Parsed:        res.Parsed,
		Forwarded:     res.Forwarded,
		ForwarderNote: res.ForwarderNote(),
		NeedsReview:   extraction.NeedsReview(res.Parsed),
	})
}

// Extract runs the full workflow on a JSON email.
func (h *EmailHandler) Extract(c *fiber.Ctx) error {
	opts, err := processOptions(c)
	if err != nil {
		return err
	}
	email, err := parseEmailBody(c)
	if err != nil {
		return err
	}
	return h.process(c, email, opts)
}

// Raw runs the full workflow on an RFC 5322 message body.
func (h *EmailHandler) Raw(c *fiber.Ctx) error {
	opts, err := processOptions(c)
	if err != nil {
		return err
	}
	if len(c.Body()) == 0 {
		return apperr.MissingField("body")
	}

	email, err := mailfile.ReadEmailBytes(c.Body())
	if err != nil {
		return apperr.BadRequest("invalid RFC 5322 message").WithError(err)
	}
	return h.process(c, email, opts)
}

func (h *EmailHandler) process(c *fiber.Ctx, email *domain.EmailContent, opts extraction.ProcessOptions) error {
	res, err := h.service.Process(c.UserContext(), email, opts)
	if err != nil {
		return err
	}
	return SuccessResponse(c, res)
}

func (h *EmailHandler) GetExtraction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.InvalidInput("id", "invalid UUID format")
	}

	rec, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, rec)
}
