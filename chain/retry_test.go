package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:    3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		Retryable:     func(err error) bool { return true },
	}
}

func TestExecuteSucceedsFirstTry(t *testing.T) {
	m := NewRetryManager(testConfig(), zerolog.Nop())

	calls := 0
	err := m.Execute(context.Background(), "read", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	m := NewRetryManager(testConfig(), zerolog.Nop())

	calls := 0
	err := m.Execute(context.Background(), "read", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteExhaustsBudget(t *testing.T) {
	m := NewRetryManager(testConfig(), zerolog.Nop())

	calls := 0
	err := m.Execute(context.Background(), "read", func() error {
		calls++
		return errors.New("always fails")
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls) // initial attempt + 3 retries
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestExecuteStopsOnNonRetryable(t *testing.T) {
	cfg := testConfig()
	sentinel := errors.New("validation")
	cfg.Retryable = func(err error) bool { return !errors.Is(err, sentinel) }
	m := NewRetryManager(cfg, zerolog.Nop())

	calls := 0
	err := m.Execute(context.Background(), "read", func() error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
}

func TestExecuteHonorsContext(t *testing.T) {
	m := NewRetryManager(testConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Execute(ctx, "read", func() error { return errors.New("x") })
	require.ErrorIs(t, err, context.Canceled)
}

func TestNilConfigUsesDefaults(t *testing.T) {
	m := NewRetryManager(nil, zerolog.Nop())
	assert.Equal(t, 3, m.config.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, m.config.InitialDelay)
	assert.True(t, m.config.Retryable(errors.New("any")))
}
