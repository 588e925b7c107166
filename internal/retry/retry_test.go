package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOpts(retryable func(error) bool) Options {
	return Options{
		BaseDelay: time.Millisecond,
		MaxJitter: time.Millisecond,
		Retryable: retryable,
	}
}

func is503(err error) bool {
	return err != nil && strings.Contains(err.Error(), "503")
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	out, err := Do(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("503 service unavailable")
		}
		return "done", nil
	}, fastOpts(is503))

	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsBudgetAndReturnsOriginalError(t *testing.T) {
	want := errors.New("503 still overloaded")
	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, want
	}, fastOpts(is503))

	require.ErrorIs(t, err, want)
	// 1 initial attempt plus the default 3 retries
	assert.Equal(t, 4, calls)
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	want := errors.New("401 bad key")
	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, want
	}, fastOpts(is503))

	require.ErrorIs(t, err, want)
	assert.Equal(t, 1, calls)
}

func TestDoNilPredicateDisablesRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("503")
	}, Options{BaseDelay: time.Millisecond, MaxJitter: time.Millisecond})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRespectsMaxRetriesOverride(t *testing.T) {
	opts := fastOpts(is503)
	opts.MaxRetries = 1

	calls := 0
	_, err := Do(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("503")
	}, opts)

	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	opts := Options{
		BaseDelay: time.Hour,
		MaxJitter: time.Millisecond,
		Retryable: is503,
	}

	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, func(context.Context) (int, error) {
			return 0, errors.New("503")
		}, opts)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
}
