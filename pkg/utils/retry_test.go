package utils

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBackoff(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := WithBackoff(context.Background(), cfg, logger, "flaky", func() error {
			calls++
			if calls < 3 {
				return errors.New("timeout")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		boom := errors.New("boom")
		calls := 0
		err := WithBackoff(context.Background(), cfg, logger, "broken", func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithBackoff(ctx, cfg, logger, "cancelled", func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBackoffDelayIsCapped(t *testing.T) {
	cfg := RetryConfig{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 10}
	assert.Equal(t, time.Second, backoffDelay(cfg, 1))
	assert.Equal(t, 3*time.Second, backoffDelay(cfg, 4))
}
