package retry

import (
	"context"
	"errors"
	"net"
	"time"
)

// Default retry parameters, matching the DFlow API's published guidance.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 30 * time.Second
	DefaultMultiplier   = 2.0
)

// Options configures Do. The zero value means "use defaults"; individual
// fields can be overridden independently.
type Options struct {
	// MaxRetries is the number of retries after the initial attempt.
	// Negative disables retries entirely.
	MaxRetries int

	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the backoff between attempts.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff factor.
	Multiplier float64

	// ShouldRetry decides whether an error is worth another attempt.
	// Nil means DefaultShouldRetry.
	ShouldRetry func(err error, attempt int) bool
}

func (o Options) withDefaults() Options {
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.InitialDelay == 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	if o.MaxDelay == 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	if o.Multiplier == 0 {
		o.Multiplier = DefaultMultiplier
	}
	if o.ShouldRetry == nil {
		o.ShouldRetry = DefaultShouldRetry
	}
	return o
}

// DefaultShouldRetry retries rate limits (429), server errors (5xx), and
// network-level failures that never produced a response. Context
// cancellation and anything else is not retried.
func DefaultShouldRetry(err error, _ int) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var se interface{ HTTPStatus() int }
	if errors.As(err, &se) {
		code := se.HTTPStatus()
		return code == 429 || code >= 500
	}

	// No HTTP status means the transport itself failed.
	var ne net.Error
	return errors.As(err, &ne)
}

// Do runs op, retrying failed attempts per opts. Attempts are strictly
// sequential. When retries are exhausted or the error is not retryable,
// the operation's error is returned unmodified so callers can still
// match on its type. If ctx is cancelled during a backoff sleep, ctx's
// error is returned.
func Do[T any](ctx context.Context, opts Options, op func(context.Context) (T, error)) (T, error) {
	opts = opts.withDefaults()

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= opts.MaxRetries || !opts.ShouldRetry(err, attempt) {
			return zero, err
		}

		delay := Delay(attempt, opts.InitialDelay, opts.MaxDelay, opts.Multiplier)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Retryable wraps op so every call runs through Do with the given
// options. The wrapper has the same signature and semantics as op.
func Retryable[T any](opts Options, op func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, opts, op)
	}
}
