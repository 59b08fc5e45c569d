// Package config provides centralized configuration management for uwmcp.
// It implements the layered config pattern:
// Layer 1: Built-in defaults (registered by the CLI bootstrap)
// Layer 2: User overrides (discovered via app identity)
// Layer 3: Environment variables and runtime overrides
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/appid"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/uwapi"
)

var (
	// appConfig holds the current application configuration
	appConfig   *Config
	configMu    sync.RWMutex
	appIdentity *appidentity.Identity
)

// Load builds the typed configuration from the merged viper state
// (defaults, discovered config file, UWMCP_* environment variables)
// plus any runtime overrides supplied by the caller.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	// Get app identity if not already loaded
	if appIdentity == nil {
		identity, err := appid.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load app identity: %w", err)
		}
		appIdentity = identity
	}

	merged := viper.AllSettings()
	for _, overrides := range runtimeOverrides {
		for key, value := range overrides {
			merged[key] = value
		}
	}

	cfg, err := Decode(merged)
	if err != nil {
		return nil, err
	}

	// Store the loaded config
	setConfig(cfg)

	return cfg, nil
}

// Decode unmarshals a merged settings map into a typed Config and
// normalizes out-of-range values back to their defaults.
func Decode(merged map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize replaces zero or out-of-range tunables with their defaults
// so downstream components always see usable values.
func (c *Config) normalize() {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		c.API.BaseURL = uwapi.DefaultBaseURL
	}
	if c.API.RequestsPerMinute <= 0 {
		c.API.RequestsPerMinute = uwapi.DefaultRequestsPerMinute
	}
	if c.API.MaxRetries < 0 {
		c.API.MaxRetries = uwapi.DefaultMaxRetries
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = uwapi.DefaultTimeout
	}

	if c.Breaker.FailureThreshold <= 0 {
		c.Breaker.FailureThreshold = uwapi.DefaultFailureThreshold
	}
	if c.Breaker.ResetTimeout <= 0 {
		c.Breaker.ResetTimeout = uwapi.DefaultResetTimeout
	}
	if c.Breaker.SuccessThreshold <= 0 {
		c.Breaker.SuccessThreshold = uwapi.DefaultSuccessThreshold
	}

	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
}

// BreakerSettings converts the breaker section into the client package's
// configuration type.
func (c *Config) BreakerSettings() uwapi.BreakerConfig {
	return uwapi.BreakerConfig{
		FailureThreshold: c.Breaker.FailureThreshold,
		ResetTimeout:     c.Breaker.ResetTimeout,
		SuccessThreshold: c.Breaker.SuccessThreshold,
	}
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// appNamesForPaths returns the config name and binary name from app identity,
// falling back to "uwmcp" if not set.
func appNamesForPaths() (configName string, binaryName string) {
	configName = "uwmcp"
	binaryName = "uwmcp"
	if appIdentity == nil {
		return configName, binaryName
	}

	if strings.TrimSpace(appIdentity.ConfigName) != "" {
		configName = appIdentity.ConfigName
	}
	if strings.TrimSpace(appIdentity.BinaryName) != "" {
		binaryName = appIdentity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths()
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	configName, _ := appNamesForPaths()
	return gfconfig.GetAppDataDir(configName)
}
