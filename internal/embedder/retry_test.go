package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	attempts := 0
	fn := func() ([][]float32, error) {
		attempts++
		if attempts < 3 {
			return nil, &transientError{errors.New("temporary blip")}
		}
		return [][]float32{{1, 2}}, nil
	}

	out, err := withRetry(context.Background(), 5, fn)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, [][]float32{{1, 2}}, out)
}

func TestWithRetry_TerminalErrorDoesNotRetry(t *testing.T) {
	t.Parallel()

	attempts := 0
	terminal := errors.New("401 unauthorized")
	fn := func() ([][]float32, error) {
		attempts++
		return nil, terminal
	}

	_, err := withRetry(context.Background(), 5, fn)
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "a non-transient error must not be retried")
}

func TestWithRetry_ExhaustsMaxRetries(t *testing.T) {
	t.Parallel()

	attempts := 0
	fn := func() ([][]float32, error) {
		attempts++
		return nil, &transientError{errors.New("still failing")}
	}

	_, err := withRetry(context.Background(), 2, fn)
	require.Error(t, err)
	assert.Equal(t, 3, attempts, "maxRetries=2 allows the initial attempt plus 2 retries")
}

func TestClassifyStatusError(t *testing.T) {
	t.Parallel()

	assert.True(t, isTransient(classifyStatusError(500)))
	assert.True(t, isTransient(classifyStatusError(429)))
	assert.False(t, isTransient(classifyStatusError(400)))
	assert.False(t, isTransient(classifyStatusError(401)))
}
