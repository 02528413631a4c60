package identity

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/taskvine/identity/session"
	"golang.org/x/time/rate"
)

// RequireSession rejects requests without an authenticated session.
// Mount after the session middleware.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := session.FromCtx(c)
		if !ok || sess.UserID() == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}
		return c.Next()
	}
}

// RequireRole rejects authenticated requests whose session role is below
// the minimum. Mount after RequireSession.
func RequireRole(minRole UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := session.FromCtx(c)
		if !ok || sess.UserID() == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		raw, _ := sess.Get("role")
		role, _ := raw.(string)
		if !RoleAtLeast(role, minRole) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "insufficient role",
			})
		}

		return c.Next()
	}
}

// RateLimiterConfig tunes the per-client limiter.
type RateLimiterConfig struct {
	Rate            rate.Limit
	Burst           int
	CleanupInterval time.Duration
	IdleTTL         time.Duration
}

// DefaultRateLimiterConfig allows 30 req/min per client with a burst of
// 10, enough headroom for a browser retrying a form.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:            rate.Limit(30.0 / 60.0),
		Burst:           10,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         10 * time.Minute,
	}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles credential endpoints per client IP. Entries for
// idle clients are dropped by a background sweep.
type RateLimiter struct {
	config RateLimiterConfig

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config = DefaultRateLimiterConfig()
	}

	rl := &RateLimiter{
		config:   config,
		limiters: map[string]*clientLimiter{},
		stopCh:   make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop halts the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

// Middleware enforces the limit keyed by client IP.
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rl.Allow(c.IP()) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests",
			})
		}
		return c.Next()
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.limiters[key] = cl
	}
	cl.lastAccess = time.Now()

	return cl.limiter.Allow()
}

func (rl *RateLimiter) cleanupLoop() {
	interval := rl.config.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	ttl := rl.config.IdleTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	cutoff := time.Now().Add(-ttl)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, cl := range rl.limiters {
		if cl.lastAccess.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}
