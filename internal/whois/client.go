// Package whois resolves IP ownership (country, ISP) through the ip-api.com
// JSON endpoint. Results are cached per IP and queries are rate limited, so a
// batch enrichment over thousands of transactions stays well inside the
// service's free-tier quota. Lookup failures degrade to an error marker and
// never abort an analysis.
package whois

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"bankflow/internal/metrics"
	"bankflow/pkg/contracts/domain"
)

// DefaultEndpoint is the public ip-api.com JSON endpoint.
const DefaultEndpoint = "http://ip-api.com/json"

// DefaultRateLimit matches the interactive tool's half-second pause between
// queries.
const DefaultRateLimit = rate.Limit(2)

// failureMarker is recorded for country and ISP when a lookup fails, matching
// the report format investigators already expect.
const failureMarker = "Error"

type apiResponse struct {
	Country string `json:"country"`
	ISP     string `json:"isp"`
}

// Client queries IP ownership with an in-memory cache and a rate limiter.
// Safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[string]domain.WhoisResult
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the lookup endpoint. Used by tests and by deployments
// that proxy the service.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithRateLimit overrides the query rate.
func WithRateLimit(limit rate.Limit) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, 1) }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a lookup client with a 3 second request timeout and the
// default rate limit.
func NewClient(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 3 * time.Second},
		limiter:    rate.NewLimiter(DefaultRateLimit, 1),
		logger:     logger.With(slog.String("component", "whois")),
		cache:      make(map[string]domain.WhoisResult),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup resolves one IP address. Cached results are returned without a
// network round trip or a limiter wait. An empty IP yields an unsuccessful
// result immediately.
func (c *Client) Lookup(ctx context.Context, ip string) domain.WhoisResult {
	if ip == "" {
		return domain.WhoisResult{IP: ip}
	}

	c.mu.Lock()
	if cached, ok := c.cache[ip]; ok {
		c.mu.Unlock()
		metrics.WhoisCacheHitsTotal.Inc()
		return cached
	}
	c.mu.Unlock()

	metrics.WhoisCacheMissesTotal.Inc()
	result := c.query(ctx, ip)

	c.mu.Lock()
	c.cache[ip] = result
	c.mu.Unlock()
	return result
}

// CacheSize reports how many distinct IPs have been resolved.
func (c *Client) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

func (c *Client) query(ctx context.Context, ip string) domain.WhoisResult {
	failed := domain.WhoisResult{
		IP:      ip,
		Country: failureMarker,
		ISP:     failureMarker,
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return failed
	}

	reqURL := fmt.Sprintf("%s/%s?fields=country,isp", c.endpoint, url.PathEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return failed
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "whois query failed",
			slog.String("ip", ip),
			slog.String("error", err.Error()))
		return failed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "whois query rejected",
			slog.String("ip", ip),
			slog.Int("status", resp.StatusCode))
		return failed
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return failed
	}

	result := domain.WhoisResult{
		IP:           ip,
		Country:      payload.Country,
		ISP:          payload.ISP,
		QuerySuccess: true,
	}
	if result.Country == "" {
		result.Country = "Unknown"
	}
	if result.ISP == "" {
		result.ISP = "Unknown"
	}
	return result
}
