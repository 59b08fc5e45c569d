package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/config"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display comprehensive environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		version := crucible.GetVersion()

		observability.CLILogger.Info("=== uwmcp Environment Information ===")
		observability.CLILogger.Info("")

		// Application Info
		identity := GetAppIdentity()
		observability.CLILogger.Info("Application:")
		observability.CLILogger.Info("  Name:       " + identity.BinaryName)
		observability.CLILogger.Info("  Version:    " + versionInfo.Version)
		observability.CLILogger.Info("  Commit:     " + versionInfo.Commit)
		observability.CLILogger.Info("  Built:      " + versionInfo.BuildDate)
		observability.CLILogger.Info("")

		// SSOT Info
		observability.CLILogger.Info("SSOT:")
		observability.CLILogger.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		observability.CLILogger.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		observability.CLILogger.Info("")

		// Runtime Info
		observability.CLILogger.Info("Runtime:")
		observability.CLILogger.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		observability.CLILogger.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		observability.CLILogger.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		observability.CLILogger.Info(fmt.Sprintf("  NumCPU:     %d", runtime.NumCPU()), zap.Int("num_cpu", runtime.NumCPU()))
		observability.CLILogger.Info("")

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed", zap.Error(err))
			return
		}

		// Configuration
		observability.CLILogger.Info("Configuration:")
		observability.CLILogger.Info("  Server Host:    "+cfg.Server.Host, zap.String("host", cfg.Server.Host))
		observability.CLILogger.Info(fmt.Sprintf("  Server Port:    %d", cfg.Server.Port), zap.Int("port", cfg.Server.Port))
		observability.CLILogger.Info("  Log Level:      "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		observability.CLILogger.Info("  Log Profile:    "+cfg.Logging.Profile, zap.String("log_profile", cfg.Logging.Profile))
		observability.CLILogger.Info(fmt.Sprintf("  Metrics Port:   %d", cfg.Metrics.Port), zap.Int("metrics_port", cfg.Metrics.Port))
		observability.CLILogger.Info("  Config File:    "+config.DefaultConfigPath(), zap.String("config_file", config.DefaultConfigPath()))
		observability.CLILogger.Info("")

		// Upstream API Configuration
		observability.CLILogger.Info("Upstream API:")
		observability.CLILogger.Info("  Base URL:       "+cfg.API.BaseURL, zap.String("base_url", cfg.API.BaseURL))
		if strings.TrimSpace(cfg.API.Token) != "" {
			observability.CLILogger.Info("  Token:          (set)")
		} else {
			observability.CLILogger.Info("  Token:          (not set)")
		}
		observability.CLILogger.Info(fmt.Sprintf("  Rate Limit:     %d/min", cfg.API.RequestsPerMinute), zap.Int("requests_per_minute", cfg.API.RequestsPerMinute))
		observability.CLILogger.Info(fmt.Sprintf("  Max Retries:    %d", cfg.API.MaxRetries), zap.Int("max_retries", cfg.API.MaxRetries))
		observability.CLILogger.Info("  Timeout:        " + cfg.API.Timeout.String())
		observability.CLILogger.Info("")

		// Circuit Breaker Configuration
		observability.CLILogger.Info("Circuit Breaker:")
		observability.CLILogger.Info(fmt.Sprintf("  Enabled:        %t", cfg.Breaker.Enabled), zap.Bool("breaker_enabled", cfg.Breaker.Enabled))
		if cfg.Breaker.Enabled {
			observability.CLILogger.Info(fmt.Sprintf("  Failure Threshold: %d", cfg.Breaker.FailureThreshold))
			observability.CLILogger.Info("  Reset Timeout:  " + cfg.Breaker.ResetTimeout.String())
			observability.CLILogger.Info(fmt.Sprintf("  Success Threshold: %d", cfg.Breaker.SuccessThreshold))
		}
		observability.CLILogger.Info("")

		observability.CLILogger.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
