package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/uwapi"
)

// Status aggregates the client-side resilience state for status surfaces.
type Status struct {
	RateLimiter uwapi.RateLimiterStatus `json:"rate_limiter"`
	Breaker     uwapi.BreakerStatus     `json:"breaker"`
	TokenSet    bool                    `json:"token_set"`
	BaseURL     string                  `json:"base_url"`
}

// FormatStatus renders the client status in the requested format.
func FormatStatus(format Format, status Status) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	case FormatYAML:
		return marshalYAML(status)
	default:
		return statusTable(status), nil
	}
}

func statusTable(status Status) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Component", "Field", "Value"})

	tokenValue := "missing"
	if status.TokenSet {
		tokenValue = "configured"
	}

	t.AppendRows([]table.Row{
		{"client", "base_url", status.BaseURL},
		{"client", "token", tokenValue},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"rate_limiter", "in_window", fmt.Sprintf("%d/%d", status.RateLimiter.InWindow, status.RateLimiter.MaxRequests)},
		{"rate_limiter", "window", status.RateLimiter.Window.String()},
	})
	t.AppendSeparator()

	breakerRows := []table.Row{
		{"breaker", "state", string(status.Breaker.State)},
		{"breaker", "failures", fmt.Sprintf("%d", status.Breaker.FailureCount)},
		{"breaker", "successes", fmt.Sprintf("%d", status.Breaker.SuccessCount)},
	}
	if !status.Breaker.NextAttempt.IsZero() {
		breakerRows = append(breakerRows, table.Row{
			"breaker", "next_attempt", status.Breaker.NextAttempt.UTC().Format(time.RFC3339),
		})
	}
	t.AppendRows(breakerRows)

	return t.Render()
}
