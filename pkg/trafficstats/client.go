// Package trafficstats provides access to the traffic estimation API, which
// reports monthly visit volume, engagement metrics, and similar sites ranked
// by audience overlap.
package trafficstats

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

const defaultBaseURL = "https://api.trafficstats.io/v2"

// Client fetches traffic estimates and audience-overlap data for a domain.
type Client interface {
	Traffic(ctx context.Context, domain string) (*TrafficResult, error)
	SimilarSites(ctx context.Context, domain string) ([]SimilarSite, error)
}

// TrafficResult is the normalized traffic estimate for one domain.
type TrafficResult struct {
	Domain            string  `json:"domain"`
	MonthlyVisits     int64   `json:"monthly_visits"`
	BounceRate        float64 `json:"bounce_rate,omitempty"`
	PagesPerVisit     float64 `json:"pages_per_visit,omitempty"`
	AvgVisitDuration  float64 `json:"avg_visit_duration_secs,omitempty"`
	GlobalRank        int     `json:"global_rank,omitempty"`
	CategoryRank      int     `json:"category_rank,omitempty"`
	TopCountry        string  `json:"top_country,omitempty"`
	TopCountryPercent float64 `json:"top_country_percent,omitempty"`
}

// SimilarSite is a domain with overlapping audience, scored 0..1.
type SimilarSite struct {
	Domain          string  `json:"domain"`
	SimilarityScore float64 `json:"similarity_score"`
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

// NewClient creates a trafficstats API client. By default calls are throttled
// to 2 req/s with a burst of 5.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(2, 5),
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

func (c *httpClient) Traffic(ctx context.Context, domain string) (*TrafficResult, error) {
	body, err := c.get(ctx, "/traffic", domain)
	if err != nil {
		return nil, err
	}

	var result TrafficResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "trafficstats: unmarshal traffic response")
	}
	if result.Domain == "" {
		result.Domain = domain
	}

	return &result, nil
}

func (c *httpClient) SimilarSites(ctx context.Context, domain string) ([]SimilarSite, error) {
	body, err := c.get(ctx, "/similar-sites", domain)
	if err != nil {
		return nil, err
	}

	var result struct {
		SimilarSites []SimilarSite `json:"similar_sites"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "trafficstats: unmarshal similar-sites response")
	}

	return result.SimilarSites, nil
}

func (c *httpClient) get(ctx context.Context, path, domain string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "trafficstats: rate limit")
		}
	}

	endpoint := c.baseURL + path + "?domain=" + url.QueryEscape(domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "trafficstats: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "trafficstats: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "trafficstats: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrap(&StatusError{StatusCode: resp.StatusCode, Body: string(body)}, "trafficstats: "+path+" "+domain)
	}

	return body, nil
}
