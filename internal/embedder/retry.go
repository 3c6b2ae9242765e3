package embedder

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// transientError marks an error as retryable under retry policy
// (network errors, 5xx, rate-limiting). Terminal errors (auth, validation)
// are returned unwrapped and fail the batch without retry.
type transientError struct{ err error }

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

func classifyHTTPError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &transientError{fmt.Errorf("network error calling embedding provider: %w", err)}
	}
	return fmt.Errorf("embedding request failed: %w", err)
}

func classifyStatusError(status int) error {
	err := fmt.Errorf("embedding provider returned status %d", status)
	if status == http.StatusTooManyRequests || status >= 500 {
		return &transientError{err}
	}
	return err
}

// withRetry invokes fn, retrying with exponential backoff and jitter on
// transient errors, bounded by maxRetries. Non-transient errors return
// immediately with no retry.
func withRetry(ctx context.Context, maxRetries int, fn func() ([][]float32, error)) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isTransient(err) || attempt == maxRetries {
			return nil, err
		}

		backoff := time.Duration(1<<uint(attempt)) * 200 * time.Millisecond
		jitter := time.Duration(rand.Int63n(int64(backoff) / 2))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff + jitter):
		}
	}
	return nil, lastErr
}
