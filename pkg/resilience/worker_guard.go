// Package resilience guards outbound model calls with a rate limiter,
// a circuit breaker and a per-call timeout.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"purchase_worker/pkg/logger"
)

// Errors returned by Guard.Do before fn runs.
var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// GuardConfig holds configuration for a Guard.
type GuardConfig struct {
	Name          string
	RatePerMinute int           // 0 disables rate limiting
	Burst         int           // default: 1
	Timeout       time.Duration // 0 disables the per-call timeout
	MaxFailures   uint32        // consecutive failures before opening (default: 5)
	OpenTimeout   time.Duration // time in open state before half-open (default: 30s)
	HalfOpenCalls uint32        // calls allowed while half-open (default: 1)
}

// DefaultGuardConfig returns sensible defaults.
func DefaultGuardConfig(name string) GuardConfig {
	return GuardConfig{
		Name:          name,
		RatePerMinute: 30,
		Burst:         3,
		Timeout:       60 * time.Second,
		MaxFailures:   5,
		OpenTimeout:   30 * time.Second,
		HalfOpenCalls: 1,
	}
}

// Guard wraps calls to an unreliable dependency.
type Guard struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
}

func NewGuard(cfg GuardConfig) *Guard {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenCalls == 0 {
		cfg.HalfOpenCalls = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	maxFailures := cfg.MaxFailures
	g := &Guard{
		name:    cfg.Name,
		timeout: cfg.Timeout,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.HalfOpenCalls,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.WithFields(map[string]any{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("circuit breaker state changed")
			},
		}),
	}
	if cfg.RatePerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.Burst)
	}
	return g
}

// Do waits for a rate-limit token, then runs fn under the breaker with the
// per-call timeout applied to ctx. Errors from fn count as breaker failures.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		return nil, fn(callCtx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, g.name)
	}
	return err
}

// State returns the breaker state: "closed", "half-open" or "open".
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// Open reports whether calls are currently rejected.
func (g *Guard) Open() bool {
	return g.breaker.State() == gobreaker.StateOpen
}
