package http

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/urbispulse/internal/auth"
	apperrors "github.com/spec-kit/urbispulse/pkg/util"
)

// RateLimitConfig defines the limit for a route.
type RateLimitConfig struct {
	Max    int
	Window time.Duration
	KeyFn  func(c *fiber.Ctx) string
}

type window struct {
	count int
	end   time.Time
}

// RateLimiter is an in-memory fixed-window rate limiter.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*window
	config  RateLimitConfig
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a rate limiter with the given config. Close stops its cleanup loop.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.KeyFn == nil {
		cfg.KeyFn = KeyByViewer
	}
	rl := &RateLimiter{
		entries: make(map[string]*window),
		config:  cfg,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanup(5 * time.Minute)
	return rl
}

// NewPerMinuteLimiter limits each caller to max requests per minute. A non-positive max disables the limit.
func NewPerMinuteLimiter(max int) *RateLimiter {
	return NewRateLimiter(RateLimitConfig{Max: max, Window: time.Minute, KeyFn: KeyByViewer})
}

// Handler returns a Fiber middleware handler that enforces the rate limit.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.config.Max <= 0 {
			return c.Next()
		}
		allowed, remaining, resetAt := rl.take(rl.config.KeyFn(c))
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if !allowed {
			retryAfter := int(resetAt.Sub(rl.now()).Seconds()) + 1
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return apperrors.NewRateLimited(retryAfter)
		}
		return c.Next()
	}
}

// Allow reports whether one more request under key fits the budget.
func (rl *RateLimiter) Allow(key string) bool {
	allowed, _, _ := rl.take(key)
	return allowed
}

// Close stops the cleanup loop.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) take(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, exists := rl.entries[key]
	if !exists || !now.Before(w.end) {
		w = &window{end: now.Add(rl.config.Window)}
		rl.entries[key] = w
	}
	w.count++
	remaining := rl.config.Max - w.count
	if remaining < 0 {
		return false, 0, w.end
	}
	return true, remaining, w.end
}

func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, w := range rl.entries {
				if !now.Before(w.end) {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// KeyByViewer keys on the authenticated user, falling back to the client IP.
func KeyByViewer(c *fiber.Ctx) string {
	if viewer := auth.ViewerFromContext(c); viewer.Authenticated() {
		return "user:" + viewer.UserID
	}
	return "ip:" + c.IP()
}
