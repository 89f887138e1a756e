package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/platinummonkey/quill/pkg/auth"
	"github.com/platinummonkey/quill/pkg/httputil"
	"github.com/platinummonkey/quill/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate (in-memory limiter only)
	BurstSize int
}

// DefaultRateLimitConfig returns the limits used for the public invitation
// endpoints
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 30,
		WindowDuration:    time.Minute,
		BurstSize:         5,
	}
}

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// Limiter decides whether a keyed request may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// MemoryLimiter is a per-process token bucket limiter
type MemoryLimiter struct {
	config  *RateLimitConfig
	buckets map[string]*bucket
	mu      sync.Mutex
	now     func() time.Time
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
}

// NewMemoryLimiter creates a new in-memory limiter
func NewMemoryLimiter(config *RateLimitConfig) *MemoryLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	return &MemoryLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (rl *MemoryLimiter) capacity() int {
	return rl.config.RequestsPerWindow + rl.config.BurstSize
}

// Allow consumes a token for key when one is available
func (rl *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{tokens: rl.capacity(), lastUpdate: now}
		rl.buckets[key] = b
	}

	// Refill tokens based on elapsed time
	elapsed := now.Sub(b.lastUpdate)
	tokensToAdd := int(elapsed.Seconds() * float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds())
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		if b.tokens > rl.capacity() {
			b.tokens = rl.capacity()
		}
		b.lastUpdate = now
	}

	d := Decision{Limit: rl.capacity(), ResetIn: rl.config.WindowDuration}
	if b.tokens > 0 {
		b.tokens--
		d.Allowed = true
	}
	d.Remaining = b.tokens
	return d, nil
}

// Cleanup removes idle buckets
func (rl *MemoryLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastUpdate) > rl.config.WindowDuration*2 {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanup runs Cleanup once per window until ctx is cancelled
func (rl *MemoryLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RateLimit limits requests per authenticated user, or per client IP for
// anonymous callers. Client IPs are taken from forwarding headers only when
// proxies trusts the direct peer. Limiter errors fail open.
func RateLimit(limiter Limiter, scope string, proxies *ProxyTrust, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + rateLimitKey(r, proxies)

			d, err := limiter.Allow(r.Context(), key)
			if err != nil {
				observability.FromContext(r.Context()).
					WithError(err).
					WithField("scope", scope).
					Warn("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, d)
			if !d.Allowed {
				metrics.RecordRateLimited(scope)
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", d.ResetIn.Seconds()))
				httputil.WriteTooManyRequests(w, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, d Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if d.ResetIn > 0 {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(d.ResetIn).Unix(), 10))
	}
}

func rateLimitKey(r *http.Request, proxies *ProxyTrust) string {
	if identity := auth.IdentityFromContext(r.Context()); identity != nil {
		return "user:" + strconv.FormatInt(identity.UserID, 10)
	}
	return "ip:" + proxies.ClientIP(r)
}
