package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/uwapi"
)

func TestDecode(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Decode(map[string]any{})
		require.NoError(t, err)
		require.NotNil(t, cfg)

		// Empty input normalizes to the documented client defaults.
		assert.Equal(t, "https://api.unusualwhales.com", cfg.API.BaseURL)
		assert.Equal(t, 120, cfg.API.RequestsPerMinute)
		assert.Equal(t, 3, cfg.API.MaxRetries)
		assert.Equal(t, 30*time.Second, cfg.API.Timeout)

		assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
		assert.Equal(t, 30*time.Second, cfg.Breaker.ResetTimeout)
		assert.Equal(t, 2, cfg.Breaker.SuccessThreshold)

		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	})

	t.Run("TypedSections", func(t *testing.T) {
		cfg, err := Decode(map[string]any{
			"api": map[string]any{
				"token":               "uw-secret",
				"base_url":            "https://staging.example.com",
				"requests_per_minute": 10,
				"max_retries":         1,
				"timeout":             "5s",
			},
			"breaker": map[string]any{
				"enabled":           true,
				"failure_threshold": 3,
				"reset_timeout":     "1m",
				"success_threshold": 4,
			},
			"server": map[string]any{
				"host": "0.0.0.0",
				"port": 9000,
			},
			"logging": map[string]any{
				"level":   "debug",
				"profile": "STRUCTURED",
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "uw-secret", cfg.API.Token)
		assert.Equal(t, "https://staging.example.com", cfg.API.BaseURL)
		assert.Equal(t, 10, cfg.API.RequestsPerMinute)
		assert.Equal(t, 1, cfg.API.MaxRetries)
		assert.Equal(t, 5*time.Second, cfg.API.Timeout)

		assert.True(t, cfg.Breaker.Enabled)
		assert.Equal(t, 3, cfg.Breaker.FailureThreshold)
		assert.Equal(t, time.Minute, cfg.Breaker.ResetTimeout)
		assert.Equal(t, 4, cfg.Breaker.SuccessThreshold)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "STRUCTURED", cfg.Logging.Profile)
	})

	// Durations arrive as strings from env vars and YAML; the decode hook
	// must convert them.
	t.Run("DurationStrings", func(t *testing.T) {
		cfg, err := Decode(map[string]any{
			"server": map[string]any{
				"read_timeout":     "45s",
				"shutdown_timeout": "5m",
			},
		})
		require.NoError(t, err)

		assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
	})

	t.Run("OutOfRangeFallsBackToDefaults", func(t *testing.T) {
		cfg, err := Decode(map[string]any{
			"api": map[string]any{
				"requests_per_minute": -5,
				"max_retries":         -1,
				"timeout":             "0s",
			},
			"breaker": map[string]any{
				"failure_threshold": 0,
				"success_threshold": -2,
			},
		})
		require.NoError(t, err)

		assert.Equal(t, 120, cfg.API.RequestsPerMinute)
		assert.Equal(t, 3, cfg.API.MaxRetries)
		assert.Equal(t, 30*time.Second, cfg.API.Timeout)
		assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
		assert.Equal(t, 2, cfg.Breaker.SuccessThreshold)
	})

	// Zero retries is a valid setting (single attempt), not an error.
	t.Run("ZeroRetriesPreserved", func(t *testing.T) {
		cfg, err := Decode(map[string]any{
			"api": map[string]any{"max_retries": 0},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.API.MaxRetries)
	})

	t.Run("TokenNeverDefaulted", func(t *testing.T) {
		cfg, err := Decode(map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, "", cfg.API.Token)
	})
}

func TestBreakerSettings(t *testing.T) {
	cfg, err := Decode(map[string]any{
		"breaker": map[string]any{
			"failure_threshold": 7,
			"reset_timeout":     "90s",
			"success_threshold": 3,
		},
	})
	require.NoError(t, err)

	settings := cfg.BreakerSettings()
	assert.Equal(t, uwapi.BreakerConfig{
		FailureThreshold: 7,
		ResetTimeout:     90 * time.Second,
		SuccessThreshold: 3,
	}, settings)
}
