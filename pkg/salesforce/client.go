// Package salesforce wraps the go-salesforce REST client with the small
// CRM surface the enrichment pipeline needs: look up an Account by website
// and create or update it with scoring fields.
package salesforce

import (
	"context"
	"fmt"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client is the Salesforce surface used by the CRM sync step.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
	InsertOne(ctx context.Context, object string, fields map[string]any) (string, error)
	UpdateOne(ctx context.Context, object, id string, fields map[string]any) error
}

// Option configures the client.
type Option func(*crmClient)

// WithRateLimit caps outgoing API calls per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *crmClient) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// crmClient adapts *salesforce.Salesforce to Client. The underlying library
// takes no context, so ctx only governs the limiter wait.
type crmClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewClient wraps an authenticated go-salesforce session.
func NewClient(sf *salesforce.Salesforce, opts ...Option) Client {
	c := &crmClient{sf: sf}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *crmClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "salesforce: rate limit wait")
	}
	return nil
}

func (c *crmClient) Query(ctx context.Context, soql string, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if err := c.sf.Query(soql, out); err != nil {
		return eris.Wrap(err, "salesforce: query")
	}
	return nil
}

func (c *crmClient) InsertOne(ctx context.Context, object string, fields map[string]any) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	res, err := c.sf.InsertOne(object, fields)
	if err != nil {
		return "", eris.Wrapf(err, "salesforce: insert %s", object)
	}
	if !res.Success {
		return "", eris.New(fmt.Sprintf("salesforce: insert %s rejected: %v", object, res.Errors))
	}
	return res.Id, nil
}

func (c *crmClient) UpdateOne(ctx context.Context, object, id string, fields map[string]any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	fields["Id"] = id
	if err := c.sf.UpdateOne(object, fields); err != nil {
		return eris.Wrapf(err, "salesforce: update %s %s", object, id)
	}
	return nil
}
