// Package techdetect provides access to the technology detection API, which
// reports the technologies a domain is built with and an estimated monthly
// technology spend.
package techdetect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.techdetect.io/v1"

// Client performs technology lookups for a domain.
type Client interface {
	Lookup(ctx context.Context, domain string) (*LookupResult, error)
}

// Technology is a single detected technology with the provider's category tag.
type Technology struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// LookupResult is the normalized response for one domain.
type LookupResult struct {
	Domain          string       `json:"domain"`
	Technologies    []Technology `json:"technologies"`
	MonthlySpendUSD int          `json:"monthly_spend_usd,omitempty"`
}

// StatusError reports a non-2xx API response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the shared token-bucket rate limit for all callers.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a techdetect API client. By default calls are throttled
// to 1 req/s with a burst of 5.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(1, 5),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, domain string) (*LookupResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "techdetect: rate limit")
		}
	}

	endpoint := c.baseURL + "/lookup?domain=" + url.QueryEscape(domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "techdetect: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "techdetect: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "techdetect: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrap(&StatusError{StatusCode: resp.StatusCode, Body: string(body)}, "techdetect: lookup "+domain)
	}

	var result LookupResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "techdetect: unmarshal response")
	}
	if result.Domain == "" {
		result.Domain = domain
	}

	return &result, nil
}
