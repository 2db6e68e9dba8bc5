package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff is a doubling retry schedule. Only transient errors are retried.
type Backoff struct {
	Attempts int           // total tries, the first included
	Base     time.Duration // wait before the second try
	Max      time.Duration // ceiling for any single wait
	Jitter   float64       // +/- fraction applied to each wait
}

// ProfileBackoff is the profile scrape schedule: three tries, waiting about
// 2s and then 4s.
func ProfileBackoff() Backoff {
	return Backoff{Attempts: 3, Base: 2 * time.Second, Max: 30 * time.Second, Jitter: 0.1}
}

// Delay returns the wait before retry n (1-based).
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 {
		return 0
	}
	d := b.Max
	if n <= 32 {
		if grown := b.Base << (n - 1); grown > 0 && (b.Max <= 0 || grown < b.Max) {
			d = grown
		}
	}
	if b.Jitter > 0 {
		d += time.Duration((rand.Float64()*2 - 1) * b.Jitter * float64(d))
	}
	return max(d, 0)
}

// Retry calls fn until it succeeds, fails permanently, ctx ends or the
// schedule runs out. op names the call in retry logs. The last error is
// returned unchanged.
func Retry[T any](ctx context.Context, b Backoff, op string, fn func(context.Context) (T, error)) (T, error) {
	attempts := max(b.Attempts, 1)
	for n := 1; ; n++ {
		val, err := fn(ctx)
		if err == nil || n >= attempts || ctx.Err() != nil || !IsTransient(err) {
			return val, err
		}

		wait := b.Delay(n)
		zap.L().Warn("resilience: retrying",
			zap.String("op", op),
			zap.Int("attempt", n),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return val, err
		case <-timer.C:
		}
	}
}
