// Package retry wraps an arbitrary operation with bounded
// exponential-backoff retries. It knows nothing about providers; the
// caller supplies the predicate that decides which errors are worth
// retrying.
package retry

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"time"
)

type Options struct {
	// MaxRetries is the number of retries after the first attempt.
	// Defaults to 3, so 4 attempts total.
	MaxRetries int

	// BaseDelay is the unit of the 2^attempt backoff. Defaults to 1s,
	// giving waits of 2s, 4s, 8s.
	BaseDelay time.Duration

	// MaxJitter is the upper bound of the random extra wait added to
	// every backoff. Defaults to 1s.
	MaxJitter time.Duration

	// Retryable decides whether an error is transient. A nil predicate
	// disables retries entirely.
	Retryable func(error) bool

	Logger *slog.Logger
}

// Do runs op, retrying while Retryable accepts the error and the retry
// budget lasts. The error from the final attempt is returned unchanged.
func Do[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts Options) (T, error) {
	var zero T

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	base := opts.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	maxJitter := opts.MaxJitter
	if maxJitter <= 0 {
		maxJitter = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for attempt := 0; ; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}

		if opts.Retryable == nil || !opts.Retryable(err) || attempt >= maxRetries {
			return zero, err
		}

		wait := base<<uint(attempt+1) + time.Duration(rand.Int63n(int64(maxJitter)))
		logger.Warn("transient failure, retrying",
			"attempt", attempt+1, "max_retries", maxRetries, "wait", wait, "err", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
