package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthieugras/czds-client/internal/config"
)

func testConfig() config.BackoffConfig {
	return config.BackoffConfig{
		InitialInterval:     10 * time.Millisecond,
		MaxInterval:         40 * time.Millisecond,
		Multiplier:          2.0,
		RandomizationFactor: 0,
	}
}

func TestFailedGrowsInterval(t *testing.T) {
	b := New(testConfig())
	assert.LessOrEqual(t, b.Pending(), time.Duration(0))

	var delays []time.Duration
	for n := 0; n < 4; n++ {
		delays = append(delays, b.Failed())
	}
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 40 * time.Millisecond}, delays)
	assert.Equal(t, 40*time.Millisecond, b.Interval(), "capped at max interval")
	assert.Equal(t, 4, b.Failures())
	assert.Greater(t, b.Pending(), time.Duration(0))
}

func TestFailedJitter(t *testing.T) {
	cfg := testConfig()
	cfg.RandomizationFactor = 0.5
	b := New(cfg)

	delay := b.Failed()
	assert.GreaterOrEqual(t, delay, 10*time.Millisecond)
	assert.LessOrEqual(t, delay, 15*time.Millisecond)
}

func TestSucceededResets(t *testing.T) {
	b := New(testConfig())
	b.Failed()
	b.Failed()

	b.Succeeded()
	assert.Equal(t, 10*time.Millisecond, b.Interval())
	assert.Zero(t, b.Failures())
	assert.LessOrEqual(t, b.Pending(), time.Duration(0))
}

func TestWait(t *testing.T) {
	b := New(testConfig())
	require.NoError(t, b.Wait(context.Background()), "no wait without a failure")

	b.Failed()
	start := time.Now()
	require.NoError(t, b.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	assert.LessOrEqual(t, b.Pending(), time.Duration(0))
}

func TestWaitCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.InitialInterval = time.Minute
	cfg.MaxInterval = time.Minute
	b := New(cfg)
	b.Failed()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Wait(ctx), context.Canceled)
}
