package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emergency-service/internal/logging"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(logging.Discard(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryExhausted(t *testing.T) {
	cause := errors.New("permanent")
	err := Retry(logging.Discard(), 2, time.Millisecond, func() error {
		return cause
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestBackoff(t *testing.T) {
	base := 30 * time.Second
	assert.Equal(t, 30*time.Second, Backoff(base, 1))
	assert.Equal(t, time.Minute, Backoff(base, 2))
	assert.Equal(t, 2*time.Minute, Backoff(base, 3))
	// Doubling caps out at ten minutes.
	assert.Equal(t, 10*time.Minute, Backoff(base, 20))
}
