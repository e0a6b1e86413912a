package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ecom-api/pkg/config"
)

// ErrLimited is returned when a key exhausted its budget for the
// current window.
var ErrLimited = errors.New("rate limit exceeded")

// Counter is the backing store capability: atomically increment a key
// and return the resulting count, expiring the key after ttl.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Limiter gates requests with a fixed window per client key. The window
// identity is the integer division of current time by the window length,
// so counters reset implicitly when the window index advances.
type Limiter struct {
	counter  Counter
	fallback *MemoryCounter
	window   time.Duration
	max      int64
	logger   *zap.Logger
	now      func() time.Time
}

// New builds a limiter over the given counter. When cfg.FallbackLocal is
// set, a backend failure degrades to a per-process counter instead of
// failing the request; the degradation is logged every time it happens.
func New(counter Counter, cfg config.RateLimitConfig, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Limiter{
		counter: counter,
		window:  cfg.Window,
		max:     cfg.Max,
		logger:  logger,
		now:     time.Now,
	}
	if cfg.FallbackLocal {
		l.fallback = NewMemoryCounter()
	}
	return l
}

// Check records one request for key and reports whether it is allowed.
// Returns ErrLimited when over budget, or the backend error when the
// counter is unreachable and no local fallback was configured.
func (l *Limiter) Check(ctx context.Context, key string) error {
	// Nanosecond arithmetic keeps the index well-defined for sub-second
	// windows; validate() guarantees the window is positive.
	windowIdx := l.now().UnixNano() / int64(l.window)
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, windowIdx)

	count, err := l.counter.Incr(ctx, bucket, l.window)
	if err != nil {
		if l.fallback == nil {
			return fmt.Errorf("rate limit backend: %w", err)
		}
		l.logger.Warn("rate limit backend unavailable, using local counter",
			zap.String("key", key), zap.Error(err))
		count, err = l.fallback.Incr(ctx, bucket, l.window)
		if err != nil {
			return fmt.Errorf("rate limit fallback: %w", err)
		}
	}

	if count > l.max {
		return ErrLimited
	}
	return nil
}
