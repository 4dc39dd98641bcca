package main

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halpert/bigtuna/internal/chain"
	"github.com/halpert/bigtuna/internal/config"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestUpcomingFridays(t *testing.T) {
	fridays := upcomingFridays(4)
	require.Len(t, fridays, 4)

	prev := time.Now()
	for _, s := range fridays {
		day, err := time.Parse("2006-01-02", s)
		require.NoError(t, err, "expiration %q should parse", s)
		assert.Equal(t, time.Friday, day.Weekday())
		assert.True(t, day.After(prev.AddDate(0, 0, -1)), "expirations should be in order")
		prev = day
	}
}

func TestBuildProvider_Static(t *testing.T) {
	cfg := &config.Config{}
	cfg.Environment.Mode = "static"
	cfg.Chain.Provider = "static"
	cfg.Chain.StaticSpot = 150
	cfg.Engine.DefaultVol = 0.3

	provider := buildProvider(cfg, quietLogger())
	require.NotNil(t, provider)

	_, ok := provider.(*chain.StaticProvider)
	assert.True(t, ok, "static mode should yield the synthetic provider")

	spot, err := provider.GetSpot(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, 150.0, spot)
}

func TestBuildProvider_Live(t *testing.T) {
	cfg := &config.Config{}
	cfg.Environment.Mode = "live"
	cfg.Chain.Provider = "tradier"
	cfg.Chain.APIKey = "test-key"
	cfg.Chain.Sandbox = true

	provider := buildProvider(cfg, quietLogger())
	require.NotNil(t, provider)

	// Outermost layer is the circuit breaker wrapping the retry client.
	_, ok := provider.(*chain.BreakerProvider)
	assert.True(t, ok, "live mode should wrap the provider in a circuit breaker")
}
