package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/config"
	"github.com/relatoapp/relato/pkg/httputil"
	"github.com/relatoapp/relato/pkg/observability"
	"github.com/relatoapp/relato/pkg/tenant"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a keyed request may proceed. An error means the
// limiter backend failed; the middleware fails open in that case.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// TokenBucketLimiter is an in-process per-key token bucket. Buckets refill
// continuously at the configured per-minute rate and hold at most
// rate+burst tokens.
type TokenBucketLimiter struct {
	perMinute int
	burst     int

	mu      sync.Mutex
	buckets map[string]*bucket

	now func() time.Time
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucketLimiter creates an in-memory limiter.
func NewTokenBucketLimiter(perMinute, burst int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		perMinute: perMinute,
		burst:     burst,
		buckets:   make(map[string]*bucket),
		now:       time.Now,
	}
}

// Allow takes one token from the key's bucket.
func (l *TokenBucketLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	max := float64(l.perMinute + l.burst)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: max, lastRefill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill)
	if elapsed > 0 {
		b.tokens += elapsed.Minutes() * float64(l.perMinute)
		if b.tokens > max {
			b.tokens = max
		}
		b.lastRefill = now
	}

	d := Decision{Limit: l.perMinute}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
		d.Remaining = int(b.tokens)
		return d, nil
	}

	// time until one token refills
	d.RetryAfter = time.Duration((1 - b.tokens) / float64(l.perMinute) * float64(time.Minute))
	return d, nil
}

// Sweep drops buckets idle for longer than maxIdle. Called periodically by
// the host process so abandoned tenant keys do not accumulate.
func (l *TokenBucketLimiter) Sweep(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxIdle)
	for key, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// RateLimit throttles requests per tenant. Scoped requests share their
// organization's budget; unscoped ones (login, super admins without a
// selected tenant) are keyed by user or client IP.
func RateLimit(limiter Limiter, cfg config.RateLimitConfig, logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			key := limitKey(r)
			d, err := limiter.Allow(r.Context(), key)
			if err != nil {
				// limiter backend down: let traffic through
				logger.WithError(err).Warn("rate limiter unavailable, failing open")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if !d.Allowed {
				retryAfter := d.RetryAfter
				if retryAfter <= 0 {
					retryAfter = time.Second
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds()+0.5)))
				httputil.WriteErr(w, httputil.RateLimited("muitas requisições, tente novamente em instantes"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// limitKey picks the bucket. The limiter runs right after the gate, before
// tenant resolution, so for regular users the organization comes from the
// live identity the gate attached. Super admins hop between tenants and get
// a personal bucket instead of draining whichever org they are looking at.
func limitKey(r *http.Request) string {
	if scope, ok := tenant.FromContext(r.Context()); ok {
		return fmt.Sprintf("org:%d", scope.OrgID())
	}
	if ident := auth.IdentityFromContext(r.Context()); ident != nil {
		if !ident.IsSuperAdmin() && ident.OrgID != 0 {
			return fmt.Sprintf("org:%d", ident.OrgID)
		}
		return fmt.Sprintf("user:%d", ident.UserID)
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	return r.RemoteAddr
}
