// Package ratelimit bounds per-scanner verification throughput with a fixed
// window counter. The limiter protects storage from runaway scan loops; it is
// not an authentication control, so store failures fail open.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gatepass/internal/scanner"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
)

const (
	DefaultLimit  = 120
	DefaultWindow = time.Minute
)

// Store counts requests per key within the current window.
type Store interface {
	// Increment adds one to the key's counter and returns the new count.
	// The counter resets when the window elapses.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter applies a fixed-window limit per scanner.
type Limiter struct {
	store   Store
	limit   int64
	window  time.Duration
	logger  *slog.Logger
	limited func(scannerID string)
}

// Option configures the Limiter.
type Option func(*Limiter)

// WithLogger sets a logger for fail-open events.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// WithLimit overrides the per-window request limit.
func WithLimit(limit int) Option {
	return func(l *Limiter) {
		if limit > 0 {
			l.limit = int64(limit)
		}
	}
}

// WithWindow overrides the window duration.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithLimitedCallback registers a hook invoked when a scanner is limited.
func WithLimitedCallback(fn func(scannerID string)) Option {
	return func(l *Limiter) {
		l.limited = fn
	}
}

// New creates a limiter over the counter store.
func New(store Store, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("rate limit store is required")
	}
	l := &Limiter{
		store:  store,
		limit:  DefaultLimit,
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l, nil
}

// Allow reports whether the key may proceed. Counter store failures allow
// the request: losing the limiter must not take down the gate.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	count, err := l.store.Increment(ctx, key, l.window)
	if err != nil {
		l.logger.Warn("rate limit check failed, allowing request",
			"key", key,
			"error", err,
		)
		return true
	}
	return count <= l.limit
}

// Middleware limits requests per authenticated scanner. It must run after
// scanner authentication; unauthenticated requests fall back to the remote
// address so probes are still bounded.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if sc, ok := scanner.FromContext(r.Context()); ok {
			key = sc.ID.String()
		}
		if !l.Allow(r.Context(), key) {
			if l.limited != nil {
				l.limited(key)
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retrySeconds(l.window), 10))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "scan rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retrySeconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
