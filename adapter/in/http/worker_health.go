package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// LLMStatus reports whether the model path is usable.
type LLMStatus interface {
	LLMAvailable() bool
}

// BreakerState reports the LLM circuit breaker state.
type BreakerState interface {
	State() string
}

// BacklogReporter reports entries delivered to the consumer group but not
// yet acknowledged.
type BacklogReporter interface {
	Pending(ctx context.Context, stream string) (int64, error)
}

type HealthHandler struct {
	checks        map[string]HealthChecker
	llm           LLMStatus
	breaker       BreakerState
	backlog       BacklogReporter
	backlogStream string
	metrics       http.Handler
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{checks: make(map[string]HealthChecker)}
}

// WithCheck adds a dependency checked by /ready. A nil checker is reported
// as "not configured".
func (h *HealthHandler) WithCheck(name string, checker HealthChecker) *HealthHandler {
	h.checks[name] = checker
	return h
}

func (h *HealthHandler) WithLLM(llm LLMStatus, breaker BreakerState) *HealthHandler {
	h.llm = llm
	h.breaker = breaker
	return h
}

// WithBacklog reports the pending count of stream on /ready. It never makes
// the service unready.
func (h *HealthHandler) WithBacklog(reporter BacklogReporter, stream string) *HealthHandler {
	h.backlog = reporter
	h.backlogStream = stream
	return h
}

func (h *HealthHandler) WithMetrics(handler http.Handler) *HealthHandler {
	h.metrics = handler
	return h
}

func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
	if h.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(h.metrics))
	}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks)+1)
	allHealthy := true

	for name, checker := range h.checks {
		if checker == nil {
			checks[name] = "not configured"
			continue
		}
		if err := checker.Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	// LLM 장애는 결정적 경로로 계속 처리 가능하므로 ready 판정에서 제외
	switch {
	case h.llm == nil || !h.llm.LLMAvailable():
		checks["llm"] = "disabled"
	case h.breaker != nil:
		checks["llm"] = "breaker " + h.breaker.State()
	default:
		checks["llm"] = "enabled"
	}

	if h.backlog != nil {
		if n, err := h.backlog.Pending(ctx, h.backlogStream); err != nil {
			checks["stream_backlog"] = "unknown: " + err.Error()
		} else {
			checks["stream_backlog"] = fmt.Sprintf("%d pending", n)
		}
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
