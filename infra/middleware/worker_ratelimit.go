package middleware

import (
	"strconv"
	"sync"
	"time"

	"purchase_worker/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimiter is a per-IP token bucket. It guards the LLM-backed routes so a
// single client cannot drain the provider budget.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per IP with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	// 오래된 항목 정리
	if len(rl.visitors) > 1024 {
		for k, other := range rl.visitors {
			if now.Sub(other.lastSeen) > rl.idle {
				delete(rl.visitors, k)
			}
		}
	}
	return v.limiter
}

func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		lim := rl.get(c.IP())
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))

		if !lim.Allow() {
			c.Set("X-RateLimit-Remaining", "0")
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retryAfter(rl.limit).Seconds())))
			return apperr.RateLimited("too many extraction requests")
		}

		c.Set("X-RateLimit-Remaining", strconv.Itoa(int(lim.Tokens())))
		return c.Next()
	}
}

func retryAfter(l rate.Limit) time.Duration {
	if l <= 0 {
		return time.Minute
	}
	d := time.Duration(float64(time.Second) / float64(l))
	if d < time.Second {
		return time.Second
	}
	return d
}
