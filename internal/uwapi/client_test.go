package uwapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// noSleep records requested backoff delays instead of waiting.
func noSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestFetchReturnsPayloadOnSuccess(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ticker":"AAPL"}`))
	}))
	defer upstream.Close()

	client := &Client{Token: "test-token", BaseURL: upstream.URL}
	resp := client.Fetch(context.Background(), "/api/stock/AAPL/info", nil)

	require.Empty(t, resp.Error)
	require.JSONEq(t, `{"ticker":"AAPL"}`, string(resp.Data))
}

func TestFetchRetriesServerErrorsWithBackoff(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	var delays []time.Duration
	client := &Client{
		Token:      "test-token",
		BaseURL:    upstream.URL,
		MaxRetries: 3,
		Sleep:      noSleep(&delays),
	}

	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)

	require.Empty(t, resp.Error)
	require.JSONEq(t, `{"ok":true}`, string(resp.Data))
	require.Equal(t, int32(3), calls.Load())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestFetchBackoffScheduleDoubles(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer upstream.Close()

	var delays []time.Duration
	client := &Client{
		Token:      "test-token",
		BaseURL:    upstream.URL,
		MaxRetries: 3,
		Sleep:      noSleep(&delays),
	}

	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)

	require.Contains(t, resp.Error, "API error (status 500)")
	require.Contains(t, resp.Error, "boom")
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such ticker"))
	}))
	defer upstream.Close()

	var delays []time.Duration
	client := &Client{Token: "test-token", BaseURL: upstream.URL, Sleep: noSleep(&delays)}

	resp := client.Fetch(context.Background(), "/api/stock/NOPE/info", nil)

	require.Contains(t, resp.Error, "404")
	require.Contains(t, resp.Error, "no such ticker")
	require.Equal(t, int32(1), calls.Load())
	require.Empty(t, delays)
}

func TestFetchNeverRetries429(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	var delays []time.Duration
	client := &Client{Token: "test-token", BaseURL: upstream.URL, MaxRetries: 3, Sleep: noSleep(&delays)}

	resp := client.Fetch(context.Background(), "/api/option-trades/flow-alerts", nil)

	require.Contains(t, resp.Error, "rate limit exceeded")
	require.Contains(t, resp.Error, "42")
	require.Equal(t, int32(1), calls.Load())
	require.Empty(t, delays)
}

func TestFetchMissingTokenShortCircuits(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer upstream.Close()

	now := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	limiter := NewRateLimiter(5)
	limiter.Clock = func() time.Time { return now }

	client := &Client{Token: "   ", BaseURL: upstream.URL, Limiter: limiter}
	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)

	require.Contains(t, resp.Error, "token is not configured")
	require.Equal(t, int32(0), calls.Load())
	require.Equal(t, 0, limiter.Snapshot().InWindow)
}

func TestFetchRejectedByLimiter(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	now := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	limiter := NewRateLimiter(1)
	limiter.Clock = func() time.Time { return now }
	require.True(t, limiter.TryAcquire().Allowed)

	client := &Client{Token: "test-token", BaseURL: upstream.URL, Limiter: limiter}
	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)

	require.Contains(t, resp.Error, "rate limit exceeded")
	require.Contains(t, resp.Error, "1m0s")
	require.Equal(t, int32(0), calls.Load())
}

func TestFetchEmptyBodyMapsToEmptyObject(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	client := &Client{Token: "test-token", BaseURL: upstream.URL}
	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)

	require.Empty(t, resp.Error)
	require.Equal(t, "{}", string(resp.Data))
}

func TestFetchMalformedJSONIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>definitely not json</html>"))
	}))
	defer upstream.Close()

	var delays []time.Duration
	client := &Client{Token: "test-token", BaseURL: upstream.URL, Sleep: noSleep(&delays)}

	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)

	require.Contains(t, resp.Error, "invalid JSON response")
	require.Contains(t, resp.Error, "definitely not json")
	require.Equal(t, int32(1), calls.Load())
	require.Empty(t, delays)
}

func TestFetchTimeoutIsRetriedAndReported(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer upstream.Close()

	var delays []time.Duration
	client := &Client{
		Token:      "test-token",
		BaseURL:    upstream.URL,
		MaxRetries: 1,
		Timeout:    20 * time.Millisecond,
		Sleep:      noSleep(&delays),
	}

	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)

	require.Contains(t, resp.Error, "request timed out")
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, []time.Duration{time.Second}, delays)
}

func TestFetchFailsFastWhenBreakerOpen(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	now := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	breaker, err := NewCircuitBreaker(BreakerConfig{FailureThreshold: 2, ResetTimeout: 30 * time.Second, SuccessThreshold: 1})
	require.NoError(t, err)
	breaker.Clock = func() time.Time { return now }

	var delays []time.Duration
	client := &Client{
		Token:      "test-token",
		BaseURL:    upstream.URL,
		Breaker:    breaker,
		MaxRetries: 1,
		Sleep:      noSleep(&delays),
	}

	// First call trips the breaker: the initial 503 plus one retried 503
	// reach the failure threshold.
	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)
	require.Contains(t, resp.Error, "API error (status 503)")
	require.Equal(t, StateOpen, breaker.Status().State)
	tripped := calls.Load()

	// Second call fails fast without touching the upstream.
	resp = client.Fetch(context.Background(), "/api/market/market-tide", nil)
	require.Contains(t, resp.Error, "circuit breaker is open")
	require.Equal(t, tripped, calls.Load())
}

func TestFetchIsIdempotentForIdenticalUpstreamData(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"value":1,"nested":{"a":[1,2,3]}}`))
	}))
	defer upstream.Close()

	client := &Client{Token: "test-token", BaseURL: upstream.URL}
	params := Params{"limit": 10, "tickers": []string{"AAPL", "MSFT"}}

	first := client.Fetch(context.Background(), "/api/darkpool/recent", params)
	second := client.Fetch(context.Background(), "/api/darkpool/recent", params)

	require.Equal(t, first, second)
}

func TestEncodeQueryOmitsEmptyAndFalse(t *testing.T) {
	query := encodeQuery(Params{
		"ticker":      "AAPL",
		"empty":       "",
		"missing":     nil,
		"all_opening": false,
		"otm_only":    true,
		"limit":       50,
		"premium":     12.5,
		"dates":       []string{"2025-06-01", "2025-06-02"},
		"ids":         []any{1, 2},
	})

	parsed, err := url.ParseQuery(query)
	require.NoError(t, err)

	require.Equal(t, "AAPL", parsed.Get("ticker"))
	require.NotContains(t, parsed, "empty")
	require.NotContains(t, parsed, "missing")
	require.NotContains(t, parsed, "all_opening")
	require.Equal(t, "true", parsed.Get("otm_only"))
	require.Equal(t, "50", parsed.Get("limit"))
	require.Equal(t, "12.5", parsed.Get("premium"))
	require.Equal(t, []string{"2025-06-01", "2025-06-02"}, parsed["dates"])
	require.Equal(t, []string{"1", "2"}, parsed["ids"])
}

func TestEncodeQueryIsDeterministic(t *testing.T) {
	params := Params{"b": "2", "a": "1", "c": []string{"x", "y"}}
	require.Equal(t, encodeQuery(params), encodeQuery(params))
}

func TestSafePathSegment(t *testing.T) {
	escaped, err := SafePathSegment("AAPL")
	require.NoError(t, err)
	require.Equal(t, "AAPL", escaped)

	escaped, err = SafePathSegment("Consumer Cyclical")
	require.NoError(t, err)
	require.Equal(t, "Consumer%20Cyclical", escaped)

	for _, bad := range []string{"", "   ", "a/b", `a\b`, "..", "a..b"} {
		_, err := SafePathSegment(bad)
		require.Error(t, err, "segment %q should be rejected", bad)
	}
}

func TestFetchObserverHooks(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	var (
		delays   []time.Duration
		outcomes []string
		retries  int
	)
	client := &Client{
		Token:      "test-token",
		BaseURL:    upstream.URL,
		MaxRetries: 2,
		Sleep:      noSleep(&delays),
		OnRequest: func(endpoint, outcome string) {
			require.Equal(t, "/api/market/market-tide", endpoint)
			outcomes = append(outcomes, outcome)
		},
		OnRetry: func(endpoint string) { retries++ },
	}

	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)

	require.Empty(t, resp.Error)
	require.Equal(t, []string{"503", "200"}, outcomes)
	require.Equal(t, 1, retries)
}

func TestFetchRateLimitedHookFires(t *testing.T) {
	limiter := NewRateLimiter(1)
	require.True(t, limiter.TryAcquire().Allowed)

	rateLimited := 0
	client := &Client{
		Token:         "test-token",
		Limiter:       limiter,
		OnRateLimited: func() { rateLimited++ },
	}

	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)

	require.Contains(t, resp.Error, "rate limit exceeded")
	require.Equal(t, 1, rateLimited)
}

func TestFetchPreservesEscapedPathSegments(t *testing.T) {
	segment, err := SafePathSegment("Real Estate")
	require.NoError(t, err)
	require.Equal(t, "Real%20Estate", segment)

	var observed string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		observed = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	client := &Client{Token: "test-token", BaseURL: upstream.URL}
	resp := client.Fetch(context.Background(), "/api/market/"+segment+"/sector-tide", nil)

	require.Empty(t, resp.Error)
	require.Equal(t, "/api/market/Real%20Estate/sector-tide", observed)
}

func TestFetchNegativeMaxRetriesDisablesRetries(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	var delays []time.Duration
	client := &Client{
		Token:      "test-token",
		BaseURL:    upstream.URL,
		MaxRetries: -1,
		Sleep:      noSleep(&delays),
	}

	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)

	require.Contains(t, resp.Error, "API error (status 503)")
	require.Equal(t, int32(1), calls.Load())
	require.Empty(t, delays)
}

func TestFetch429IsBreakerNeutral(t *testing.T) {
	var rateLimited atomic.Bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rateLimited.Load() {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	now := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)
	breaker, err := NewCircuitBreaker(BreakerConfig{FailureThreshold: 1, ResetTimeout: 30 * time.Second, SuccessThreshold: 1})
	require.NoError(t, err)
	breaker.Clock = func() time.Time { return now }

	var delays []time.Duration
	client := &Client{
		Token:      "test-token",
		BaseURL:    upstream.URL,
		Breaker:    breaker,
		MaxRetries: -1,
		Sleep:      noSleep(&delays),
	}

	resp := client.Fetch(context.Background(), "/api/market/market-tide", nil)
	require.Contains(t, resp.Error, "API error (status 500)")
	require.Equal(t, StateOpen, breaker.Status().State)

	// Past the reset timeout the circuit admits a probe; a 429 response
	// must neither close the circuit nor reopen it.
	now = now.Add(31 * time.Second)
	rateLimited.Store(true)

	resp = client.Fetch(context.Background(), "/api/market/market-tide", nil)
	require.Contains(t, resp.Error, "rate limit exceeded")
	require.Equal(t, StateHalfOpen, breaker.Status().State)
	require.Equal(t, 0, breaker.Status().SuccessCount)
}
