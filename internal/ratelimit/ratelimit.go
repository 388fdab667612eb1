package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultLimit  = 100
	DefaultWindow = time.Minute
)

// Entry is the per-key fixed window state.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Decision is the outcome of a single rate limit check.
type Decision struct {
	Allowed bool
	Count   int
	Limit   int
	ResetAt time.Time
}

// Remaining returns how many more requests the window admits.
func (d Decision) Remaining() int {
	if d.Count >= d.Limit {
		return 0
	}
	return d.Limit - d.Count
}

// Store holds fixed window counters. Hit applies one request to key:
// a missing or elapsed window restarts at 1, a full window denies without
// counting, anything else increments. Implementations must be safe for
// concurrent use.
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration) (Entry, bool, error)
}

// Limiter is a fixed window request counter keyed by client identifier.
// Two bursts straddling a window boundary can admit up to twice the limit.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	logger *zap.Logger
}

func New(store Store, limit int, window time.Duration, log *zap.Logger) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: log,
	}
}

// Allow records a request for key. It never fails: a store error is logged and
// the request is admitted.
func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	entry, allowed, err := l.store.Hit(ctx, key, l.limit, l.window)
	if err != nil {
		l.logger.Warn("Rate limit store error, allowing request",
			zap.String("key", key),
			zap.Error(err),
		)
		return Decision{Allowed: true, Limit: l.limit}
	}

	return Decision{
		Allowed: allowed,
		Count:   entry.Count,
		Limit:   l.limit,
		ResetAt: entry.ResetAt,
	}
}

// CheckRateLimit reports whether a request for key is admitted.
func (l *Limiter) CheckRateLimit(ctx context.Context, key string) bool {
	return l.Allow(ctx, key).Allowed
}

func (l *Limiter) Limit() int {
	return l.limit
}

func (l *Limiter) Window() time.Duration {
	return l.window
}
