package uwapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client defaults.
const (
	DefaultBaseURL    = "https://api.unusualwhales.com"
	DefaultMaxRetries = 3
	DefaultTimeout    = 30 * time.Second

	// backoffBase is the delay before the first retry; each subsequent
	// retry doubles it (1s, 2s, 4s, ...).
	backoffBase = time.Second

	// bodyPreviewLimit bounds how much of a malformed body is echoed back
	// in error messages.
	bodyPreviewLimit = 200
)

// Params holds query parameters for an outbound call. Values may be scalars
// or slices; nil, empty-string and false values are omitted from the encoded
// query, and slice values are encoded as repeated keys.
type Params map[string]any

// Client issues authenticated GET requests against the Unusual Whales API,
// consulting the rate limiter before every attempt and retrying transient
// failures with exponential backoff. Fetch never returns a Go error; every
// failure is folded into the envelope.
type Client struct {
	// Token is the bearer credential. Fetch fails fast when it is empty.
	Token string
	// BaseURL overrides the upstream origin, for tests.
	BaseURL string
	// HTTPClient overrides the transport. The per-attempt timeout is
	// enforced through the request context, not the http.Client.
	HTTPClient *http.Client
	// Limiter is the client-side admission guard. Optional, but every
	// production client carries one.
	Limiter *RateLimiter
	// Breaker optionally isolates the upstream; when set, each attempt
	// runs through it and an open circuit fails the call fast.
	Breaker *CircuitBreaker
	// MaxRetries bounds retry attempts after the initial one. Zero means
	// DefaultMaxRetries; a negative value disables retries entirely.
	MaxRetries int
	// Timeout is the per-attempt wall clock bound. Zero means
	// DefaultTimeout.
	Timeout time.Duration
	// Sleep overrides the backoff wait, for tests.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRequest, when set, observes each finished attempt with the
	// endpoint path and an outcome label (the HTTP status code,
	// "transport_error", or "breaker_open").
	OnRequest func(endpoint, outcome string)
	// OnRetry, when set, observes each scheduled backoff retry.
	OnRetry func(endpoint string)
	// OnRateLimited, when set, observes client-side admission rejections.
	OnRateLimited func()
}

// upstreamError marks a retryable upstream failure (HTTP 5xx) so the breaker
// counts it alongside transport errors.
type upstreamError struct {
	status int
	body   string
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.status, e.body)
}

// attemptResult is the classified outcome of one HTTP attempt.
type attemptResult struct {
	status int
	header http.Header
	body   []byte
}

// Fetch performs a GET against endpointPath with the given query parameters
// and returns the uniform envelope. All failures, including configuration
// problems, land in the envelope's Error field.
func (c *Client) Fetch(ctx context.Context, endpointPath string, params Params) Response {
	token := strings.TrimSpace(c.Token)
	if token == "" {
		return ErrorResponse("Unusual Whales API token is not configured (set UWMCP_API_TOKEN)")
	}

	reqURL, err := c.buildURL(endpointPath, params)
	if err != nil {
		return ErrorResponse("invalid request: %v", err)
	}

	maxRetries := c.MaxRetries
	switch {
	case maxRetries < 0:
		maxRetries = 0
	case maxRetries == 0:
		maxRetries = DefaultMaxRetries
	}

	var lastErr string
	for attempt := 0; ; attempt++ {
		// Retries never bypass the limiter; each attempt is admitted
		// on its own.
		if c.Limiter != nil {
			if admission := c.Limiter.TryAcquire(); !admission.Allowed {
				if c.OnRateLimited != nil {
					c.OnRateLimited()
				}
				return ErrorResponse("rate limit exceeded, retry in %s", roundWait(admission.Wait))
			}
		}

		result, err := c.doAttempt(ctx, reqURL, token)
		if err != nil {
			var open *OpenError
			if errors.As(err, &open) {
				// Fail fast; the upstream is known bad and the
				// breaker already carries the recovery estimate.
				c.notifyRequest(endpointPath, "breaker_open")
				return ErrorResponse("%s", open.Error())
			}

			// Transport failures and 5xx are the retryable class.
			c.notifyRequest(endpointPath, outcomeForError(err))
			lastErr = retryableMessage(err)
			if attempt < maxRetries {
				if c.OnRetry != nil {
					c.OnRetry(endpointPath)
				}
				if err := c.backoff(ctx, attempt); err != nil {
					return ErrorResponse("%s", lastErr)
				}
				continue
			}
			return ErrorResponse("%s", lastErr)
		}

		c.notifyRequest(endpointPath, strconv.Itoa(result.status))
		return classify(result)
	}
}

// doAttempt runs a single HTTP attempt, through the breaker when one is
// configured. 5xx responses surface as errors so the breaker records them;
// a 429 is breaker-neutral (the quota says nothing about upstream health,
// so it must not count as failure or as recovery evidence); everything else
// comes back as an attemptResult for classification.
func (c *Client) doAttempt(ctx context.Context, reqURL, token string) (*attemptResult, error) {
	if c.Breaker == nil {
		return c.roundTrip(ctx, reqURL, token)
	}

	result, err := c.Breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		res, err := c.roundTrip(ctx, reqURL, token)
		if err != nil {
			return nil, err
		}
		if res.status == http.StatusTooManyRequests {
			return nil, &neutralOutcome{result: res}
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	typed, ok := result.(*attemptResult)
	if !ok {
		return nil, fmt.Errorf("request failed: unexpected result type %T", result)
	}
	return typed, nil
}

func (c *Client) roundTrip(ctx context.Context, reqURL, token string) (*attemptResult, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("request timed out after %s", timeout)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &upstreamError{status: resp.StatusCode, body: preview(body)}
	}

	return &attemptResult{
		status: resp.StatusCode,
		header: resp.Header,
		body:   body,
	}, nil
}

// classify maps a non-5xx attempt outcome to an envelope. Nothing returned
// from here is retried.
func classify(result *attemptResult) Response {
	switch {
	case result.status == http.StatusTooManyRequests:
		// The upstream quota is already exhausted; retrying would only
		// amplify the overload signal.
		if retryAfter := result.header.Get("Retry-After"); retryAfter != "" {
			return ErrorResponse("rate limit exceeded (retry after %s)", retryAfter)
		}
		return ErrorResponse("rate limit exceeded")

	case result.status >= http.StatusBadRequest:
		return ErrorResponse("API error (status %d): %s", result.status, preview(result.body))
	}

	trimmed := strings.TrimSpace(string(result.body))
	if trimmed == "" {
		return DataResponse([]byte("{}"))
	}
	if !isJSON(trimmed) {
		return ErrorResponse("invalid JSON response: %s", preview(result.body))
	}
	return DataResponse([]byte(trimmed))
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := backoffBase << attempt
	if c.Sleep != nil {
		return c.Sleep(ctx, delay)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) buildURL(endpointPath string, params Params) (string, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if !strings.HasPrefix(endpointPath, "/") {
		endpointPath = "/" + endpointPath
	}

	// endpointPath arrives already percent-encoded (SafePathSegment), so it
	// must land in RawPath; assigning it to Path would make String() escape
	// the % signs a second time.
	joined := strings.TrimSuffix(parsed.EscapedPath(), "/") + endpointPath
	unescaped, err := url.PathUnescape(joined)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint path %q: %w", endpointPath, err)
	}
	parsed.Path = unescaped
	parsed.RawPath = joined
	parsed.RawQuery = encodeQuery(params)
	return parsed.String(), nil
}

// encodeQuery serializes params deterministically: nil, empty-string and
// false values are omitted, slices become repeated keys and everything else
// is stringified.
func encodeQuery(params Params) string {
	if len(params) == 0 {
		return ""
	}

	values := url.Values{}
	for key, raw := range params {
		switch v := raw.(type) {
		case nil:
			continue
		case string:
			if v == "" {
				continue
			}
			values.Add(key, v)
		case bool:
			if !v {
				continue
			}
			values.Add(key, "true")
		case []string:
			for _, item := range v {
				if item == "" {
					continue
				}
				values.Add(key, item)
			}
		case []any:
			for _, item := range v {
				if item == nil {
					continue
				}
				values.Add(key, fmt.Sprint(item))
			}
		default:
			values.Add(key, fmt.Sprint(v))
		}
	}
	return values.Encode()
}

// SafePathSegment validates a value destined for a URL path position and
// percent-encodes it. Separator characters and traversal sequences are
// rejected outright; this is the defense for endpoints that embed
// caller-supplied identifiers (tickers, sector names) in the path.
func SafePathSegment(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", errors.New("path segment must not be empty")
	}
	if strings.ContainsAny(trimmed, `/\`) || strings.Contains(trimmed, "..") {
		return "", fmt.Errorf("path segment %q contains forbidden characters", value)
	}
	return url.PathEscape(trimmed), nil
}

func (c *Client) notifyRequest(endpoint, outcome string) {
	if c.OnRequest != nil {
		c.OnRequest(endpoint, outcome)
	}
}

// outcomeForError labels a retryable failure for observers: the HTTP status
// for 5xx responses, "transport_error" for everything else.
func outcomeForError(err error) string {
	var upstream *upstreamError
	if errors.As(err, &upstream) {
		return strconv.Itoa(upstream.status)
	}
	return "transport_error"
}

func retryableMessage(err error) string {
	var upstream *upstreamError
	if errors.As(err, &upstream) {
		return upstream.Error()
	}
	return err.Error()
}

func preview(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > bodyPreviewLimit {
		return text[:bodyPreviewLimit] + "..."
	}
	return text
}

func isJSON(text string) bool {
	return json.Valid([]byte(text))
}

// roundWait reports a wait duration rounded up to whole seconds so callers
// never retry early.
func roundWait(wait time.Duration) time.Duration {
	if wait <= 0 {
		return time.Second
	}
	rounded := wait.Truncate(time.Second)
	if rounded < wait {
		rounded += time.Second
	}
	return rounded
}
