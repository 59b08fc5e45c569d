package config

import "time"

// Config represents the complete application configuration
// following the Fulmen Forge Workhorse Standard layered pattern:
// Layer 1: Built-in defaults (set by the CLI bootstrap)
// Layer 2: User overrides (discovered via app identity)
// Layer 3: Environment variables and runtime overrides
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
	Debug   DebugConfig   `mapstructure:"debug"`
}

// APIConfig contains upstream Unusual Whales API client configuration.
type APIConfig struct {
	// Token is the bearer credential for api.unusualwhales.com.
	// Never defaulted; supply via UWMCP_API_TOKEN or the config file.
	Token string `mapstructure:"token"`

	// BaseURL is the upstream API origin.
	BaseURL string `mapstructure:"base_url"`

	// RequestsPerMinute caps client-side request admission.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`

	// MaxRetries bounds backoff retries per call (attempts = retries + 1).
	// An explicit 0 disables retries.
	MaxRetries int `mapstructure:"max_retries"`

	// Timeout is the per-attempt request deadline.
	Timeout time.Duration `mapstructure:"timeout"`
}

// BreakerConfig contains upstream circuit breaker configuration.
type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration
// Supports progressive logging profiles per Fulmen Forge Workhorse Standard:
// - SIMPLE: Console output only, minimal configuration (CLI tools)
// - STRUCTURED: Structured sinks, correlation IDs (API services)
// - ENTERPRISE: Multiple sinks, middleware, throttling, policy enforcement (production)
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	// Metrics are also available at the main HTTP port in JSON format
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	// Enabled controls whether health endpoints are exposed
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	// Enabled controls whether debug mode is active
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}
