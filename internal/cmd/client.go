package cmd

import (
	"context"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/config"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/metrics"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/tools"
	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/uwapi"
)

// buildClient assembles the upstream client from the loaded configuration.
// The breaker is attached only when enabled in config. Telemetry hooks are
// always wired; the emitters no-op when the telemetry system is absent.
func buildClient(ctx context.Context) (*uwapi.Client, *config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	client := &uwapi.Client{
		Token:         cfg.API.Token,
		BaseURL:       cfg.API.BaseURL,
		Limiter:       uwapi.NewRateLimiter(cfg.API.RequestsPerMinute),
		MaxRetries:    clientMaxRetries(cfg.API.MaxRetries),
		Timeout:       cfg.API.Timeout,
		OnRequest:     metrics.RecordUpstreamRequest,
		OnRetry:       metrics.RecordUpstreamRetry,
		OnRateLimited: metrics.RecordRateLimitRejection,
	}

	if cfg.Breaker.Enabled {
		breaker, err := uwapi.NewCircuitBreaker(cfg.BreakerSettings())
		if err != nil {
			return nil, nil, err
		}
		breaker.OnStateChange = func(from, to uwapi.BreakerState) {
			metrics.RecordBreakerTransition(string(from), string(to))
		}
		client.Breaker = breaker
	}

	return client, cfg, nil
}

// clientMaxRetries maps the configured retry count onto the client's
// sentinel: for the client, zero means "use the default", so an operator's
// explicit zero becomes the negative retries-disabled marker.
func clientMaxRetries(configured int) int {
	if configured == 0 {
		return -1
	}
	return configured
}

// buildDispatcher assembles the tool dispatcher on top of a configured client.
func buildDispatcher(ctx context.Context) (*tools.Dispatcher, *uwapi.Client, *config.Config, error) {
	client, cfg, err := buildClient(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return &tools.Dispatcher{Client: client}, client, cfg, nil
}
