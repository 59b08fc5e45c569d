package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/output"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/uwapi"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show client resilience status",
	Long: `Show the configured upstream client state: rate limiter quota,
circuit breaker state, and credential presence.

Note this inspects a fresh client built from configuration; a running
serve process tracks its own limiter and breaker state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(statusOutput)
		if err != nil {
			return err
		}

		client, cfg, err := buildClient(cmd.Context())
		if err != nil {
			return err
		}

		status := output.Status{
			RateLimiter: client.Limiter.Snapshot(),
			TokenSet:    strings.TrimSpace(cfg.API.Token) != "",
			BaseURL:     cfg.API.BaseURL,
		}
		if client.Breaker != nil {
			status.Breaker = client.Breaker.Status()
		} else {
			status.Breaker = uwapi.BreakerStatus{State: uwapi.StateClosed}
		}

		rendered, err := output.FormatStatus(format, status)
		if err != nil {
			return err
		}
		fmt.Println(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusOutput, "output", "table", "Output format: table, json, yaml")
}
