package metrics

import (
	"time"

	"github.com/erikmaday/unusual-whales-mcp-sub001/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Tool invocation metrics
	ToolInvocationsTotal   = "app_tool_invocations_total"
	ToolInvocationDuration = "app_tool_invocation_duration_ms"

	// Upstream API metrics
	UpstreamRequestsTotal = "app_upstream_requests_total"
	UpstreamRetriesTotal  = "app_upstream_retries_total"

	// Resilience metrics
	RateLimitRejectionsTotal = "app_rate_limit_rejections_total"
	BreakerTransitionsTotal  = "app_breaker_transitions_total"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordToolInvocation records a tool dispatch with its outcome and latency.
func RecordToolInvocation(tool string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			ToolInvocationsTotal,
			1,
			map[string]string{
				"tool":   tool,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			ToolInvocationDuration,
			duration,
			map[string]string{
				"tool": tool,
			},
		)
	}
}

// RecordUpstreamRequest records an attempt against the Unusual Whales API.
func RecordUpstreamRequest(endpoint string, status string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			UpstreamRequestsTotal,
			1,
			map[string]string{
				"endpoint": endpoint,
				"status":   status,
			},
		)
	}
}

// RecordUpstreamRetry records a backoff retry of an upstream call.
func RecordUpstreamRetry(endpoint string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			UpstreamRetriesTotal,
			1,
			map[string]string{
				"endpoint": endpoint,
			},
		)
	}
}

// RecordRateLimitRejection records a client-side admission rejection.
func RecordRateLimitRejection() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitRejectionsTotal,
			1,
			nil,
		)
	}
}

// RecordBreakerTransition records a circuit breaker state change.
func RecordBreakerTransition(from string, to string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			BreakerTransitionsTotal,
			1,
			map[string]string{
				"from": from,
				"to":   to,
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
