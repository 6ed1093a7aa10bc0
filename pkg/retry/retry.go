package retry

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Policy retries an operation on transient failures with exponential backoff
// plus jitter. Sleep and Rand are injectable so tests run without real delays.
type Policy struct {
	// MaxAttempts is the total attempt ceiling, first call included.
	MaxAttempts int
	// Base is the backoff unit; the delay after failed attempt n is Base·2^n.
	Base time.Duration
	// Jitter bounds the random component added to every delay.
	Jitter time.Duration
	// Retryable decides whether an error is worth another attempt.
	// A nil predicate retries everything.
	Retryable func(error) bool

	Sleep func(ctx context.Context, d time.Duration) error
	Rand  func(n int64) int64

	Log *zap.SugaredLogger
}

const (
	defaultMaxAttempts = 3
	defaultBase        = time.Second
	defaultJitter      = 100 * time.Millisecond
)

// New returns a policy with the service defaults: 3 attempts,
// delay = 2^attempt seconds + random jitter up to 100ms.
func New(log *zap.SugaredLogger) *Policy {
	return &Policy{
		MaxAttempts: defaultMaxAttempts,
		Base:        defaultBase,
		Jitter:      defaultJitter,
		Log:         log,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Delay returns the backoff before the given retry (attempt starts at 1 for
// the first retry).
func (p *Policy) Delay(attempt int) time.Duration {
	d := p.Base << uint(attempt)
	if p.Jitter > 0 {
		rnd := p.Rand
		if rnd == nil {
			rnd = rand.Int63n
		}
		d += time.Duration(rnd(int64(p.Jitter)))
	}
	return d
}

// Do runs op until it succeeds, fails permanently, exhausts the attempt
// ceiling, or the context is canceled. The last error is returned as-is so
// callers can still errors.Is against it.
func (p *Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		delay := p.Delay(attempt)
		if p.Log != nil {
			p.Log.Warnw("retrying after transient failure",
				"op", name,
				"attempt", attempt,
				"backoff_ms", delay.Milliseconds(),
				"err", err,
			)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}
