package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/rewind-gg/rewind/internal/config"
)

const (
	defaultBaseDomain  = "api.riotgames.com"
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxAttempts = 5
	defaultRateLimit   = 20 // development keys allow 20 requests per second
	defaultRateBurst   = 20

	retryAfterFallback = 2 * time.Second
	transportBackoff   = 500 * time.Millisecond
)

type (
	// ClientConfig holds Riot API client configuration.
	ClientConfig struct {
		// APIKey is the service credential sent as X-Riot-Token. Required.
		APIKey string

		// BaseDomain is the shared suffix of every cluster host
		// (https://{cluster}.{BaseDomain}).
		BaseDomain string

		// Timeout bounds each HTTP request.
		Timeout time.Duration

		// MaxAttempts is the retry budget for match traffic (429/5xx/transport).
		// Identity resolution always uses a single attempt regardless.
		MaxAttempts int

		// RequestsPerSecond and Burst shape the client-side rate limiter so a
		// burst of match fetches stays inside the key's quota instead of
		// bouncing off 429s.
		RequestsPerSecond int
		Burst             int
	}

	// Client is a rate-limited Riot API client covering the account-v1
	// directory and the match-v5 history endpoints.
	Client struct {
		cfg       *ClientConfig
		httpc     *http.Client
		limiter   *rate.Limiter
		logger    *slog.Logger
		aliases   *AliasConfig
		endpoints map[Cluster]string
	}

	// ClientOption configures optional Client behavior.
	ClientOption func(*Client)
)

// LoadClientConfig loads Riot API client configuration from environment
// variables with fallback to defaults.
func LoadClientConfig() *ClientConfig {
	return &ClientConfig{
		APIKey:            config.GetEnvStr("RIOT_API_KEY", ""),
		BaseDomain:        config.GetEnvStr("RIOT_API_BASE_DOMAIN", defaultBaseDomain),
		Timeout:           config.GetEnvDuration("RIOT_HTTP_TIMEOUT", defaultHTTPTimeout),
		MaxAttempts:       config.GetEnvInt("RIOT_MAX_ATTEMPTS", defaultMaxAttempts),
		RequestsPerSecond: config.GetEnvInt("RIOT_RATE_LIMIT", defaultRateLimit),
		Burst:             config.GetEnvInt("RIOT_RATE_BURST", defaultRateBurst),
	}
}

// Validate checks that the client configuration is usable.
func (c *ClientConfig) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}

	return nil
}

// WithAliases sets the region alias configuration applied before routing.
// If not set, region codes are used as entered (lowercased).
func WithAliases(aliases *AliasConfig) ClientOption {
	return func(c *Client) {
		c.aliases = aliases
	}
}

// WithClusterEndpoints overrides the base URL per cluster. Production code
// never needs this; tests use it to point clusters at local servers so the
// endpoint actually contacted is observable.
func WithClusterEndpoints(endpoints map[Cluster]string) ClientOption {
	return func(c *Client) {
		c.endpoints = endpoints
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Riot API client. Returns ErrMissingAPIKey before any
// I/O when the credential is absent.
func NewClient(cfg *ClientConfig, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.BaseDomain == "" {
		cfg.BaseDomain = defaultBaseDomain
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = defaultMaxAttempts
	}

	if cfg.RequestsPerSecond < 1 {
		cfg.RequestsPerSecond = defaultRateLimit
	}

	if cfg.Burst < 1 {
		cfg.Burst = defaultRateBurst
	}

	client := &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// clusterBaseURL returns the base URL for a routing cluster.
func (c *Client) clusterBaseURL(cluster Cluster) string {
	if override, ok := c.endpoints[cluster]; ok {
		return override
	}

	return "https://" + string(cluster) + "." + c.cfg.BaseDomain
}

// route canonicalizes a region code and maps it to its cluster.
func (c *Client) route(region string) Cluster {
	return ClusterForRegion(c.aliases.Canonical(region))
}

// getJSON issues a GET with the service credential and decodes the JSON
// response into out.
//
// maxAttempts > 1 enables the quota/availability retry ladder: 429 waits for
// Retry-After (2s fallback), 5xx backs off linearly, transport faults back
// off briefly. Every attempt first waits on the client-side rate limiter.
// Non-retryable statuses surface immediately as UpstreamError with the
// status preserved.
func (c *Client) getJSON(ctx context.Context, rawURL string, query url.Values, maxAttempts int, out any) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	requestURL := rawURL
	if len(query) > 0 {
		requestURL = rawURL + "?" + query.Encode()
	}

	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return &UpstreamError{Err: fmt.Errorf("rate limiter wait: %w", err)}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return &UpstreamError{Err: fmt.Errorf("build request: %w", err)}
		}

		req.Header.Set("X-Riot-Token", c.cfg.APIKey)

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = &UpstreamError{Err: err}

			if attempt < maxAttempts-1 {
				c.logger.Debug("riot request transport fault, retrying",
					slog.String("url", rawURL),
					slog.Int("attempt", attempt+1),
					slog.String("error", err.Error()),
				)

				if err := sleepCtx(ctx, transportBackoff+time.Duration(attempt)*time.Second); err != nil {
					return lastErr
				}
			}

			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfterDelay(resp.Header.Get("Retry-After"))
			drainAndClose(resp)

			lastErr = &UpstreamError{Status: resp.StatusCode}

			if attempt < maxAttempts-1 {
				c.logger.Debug("riot rate limit hit, waiting",
					slog.String("url", rawURL),
					slog.Duration("retry_after", wait),
				)

				if err := sleepCtx(ctx, wait); err != nil {
					return lastErr
				}
			}

		case resp.StatusCode >= 500:
			drainAndClose(resp)

			lastErr = &UpstreamError{Status: resp.StatusCode}

			if attempt < maxAttempts-1 {
				if err := sleepCtx(ctx, time.Duration(attempt+1)*time.Second); err != nil {
					return lastErr
				}
			}

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			drainAndClose(resp)

			return &UpstreamError{Status: resp.StatusCode}

		default:
			err := json.NewDecoder(resp.Body).Decode(out)
			drainAndClose(resp)

			if err != nil {
				return &UpstreamError{Err: fmt.Errorf("decode response: %w", err)}
			}

			return nil
		}
	}

	return lastErr
}

// retryAfterDelay parses a Retry-After header value in seconds.
func retryAfterDelay(header string) time.Duration {
	if header == "" {
		return retryAfterFallback
	}

	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return retryAfterFallback
	}

	return time.Duration(seconds) * time.Second
}

// drainAndClose releases the response body so the connection can be reused.
func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// sleepCtx sleeps for d or until ctx is done, returning the context error in
// the latter case.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
