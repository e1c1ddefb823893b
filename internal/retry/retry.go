// internal/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultAttempts = 5
	DefaultDelay    = 2 * time.Second
)

// ErrNotReady is returned by Poll when every attempt produced a value the
// caller considers not ready yet.
var ErrNotReady = errors.New("result not ready")

// Options bound a Poll call.
type Options[T any] struct {
	// Attempts is the total number of calls, including the first one.
	Attempts uint
	// Delay is the fixed wait between attempts.
	Delay time.Duration
	// NotReady reports whether a successful result must be retried.
	// A nil NotReady accepts every result.
	NotReady func(T) bool
	// Notify is called before each wait.
	Notify func(err error, next time.Duration)
}

func (o Options[T]) withDefaults() Options[T] {
	if o.Attempts == 0 {
		o.Attempts = DefaultAttempts
	}
	if o.Delay <= 0 {
		o.Delay = DefaultDelay
	}
	return o
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Poll calls op until it returns a ready value, fails permanently, the
// attempt budget runs out or ctx is done.
func Poll[T any](ctx context.Context, op func(context.Context) (T, error), opts Options[T]) (T, error) {
	opts = opts.withDefaults()

	attempt := func() (T, error) {
		v, err := op(ctx)
		if err != nil {
			return v, err
		}
		if opts.NotReady != nil && opts.NotReady(v) {
			return v, ErrNotReady
		}
		return v, nil
	}

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(opts.Delay)),
		backoff.WithMaxTries(opts.Attempts),
	}
	if opts.Notify != nil {
		retryOpts = append(retryOpts, backoff.WithNotify(opts.Notify))
	}

	v, err := backoff.Retry(ctx, attempt, retryOpts...)
	if err != nil {
		var zero T
		if errors.Is(err, ErrNotReady) {
			return zero, fmt.Errorf("gave up after %d attempts: %w", opts.Attempts, ErrNotReady)
		}
		return zero, err
	}
	return v, nil
}
