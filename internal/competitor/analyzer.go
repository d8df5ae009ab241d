// Package competitor discovers similar domains and analyzes which of them
// run a dedicated search product.
package competitor

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/rules"
	"github.com/sells-group/signals-cli/internal/techstack"
	"github.com/sells-group/signals-cli/pkg/techdetect"
	"github.com/sells-group/signals-cli/pkg/trafficstats"
)

const defaultCap = 8

// Analyzer fetches the competitor landscape for a domain. Tech lookups run
// sequentially; a token bucket paces the candidates so the detection API
// sees no burst on top of the client's own rate limit.
type Analyzer struct {
	traffic    trafficstats.Client
	tech       techdetect.Client
	classifier *techstack.Classifier
	rules      *rules.Ruleset
	maxSites   int
	limiter    *rate.Limiter
	log        *zap.Logger
}

// Option configures the analyzer.
type Option func(*Analyzer)

// WithCap overrides the maximum number of competitors analyzed per run.
func WithCap(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxSites = n
		}
	}
}

// WithPause overrides the minimum interval between consecutive tech
// lookups. Zero removes the pacing entirely.
func WithPause(d time.Duration) Option {
	return func(a *Analyzer) {
		if d <= 0 {
			a.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		a.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger overrides the default logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Analyzer) {
		a.log = log
	}
}

// NewAnalyzer creates a competitor analyzer.
func NewAnalyzer(traffic trafficstats.Client, tech techdetect.Client, rs *rules.Ruleset, opts ...Option) *Analyzer {
	a := &Analyzer{
		traffic:    traffic,
		tech:       tech,
		classifier: techstack.NewClassifier(rs),
		rules:      rs,
		maxSites:   defaultCap,
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		log:        zap.L(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Analyze builds the competitor landscape for domain. Candidates come from
// audience overlap, ranked by similarity, and at most the configured cap are
// analyzed. A failed tech lookup degrades that one candidate to the static
// customer list instead of failing the run. On cancellation the landscape
// built so far is returned together with the context error.
func (a *Analyzer) Analyze(ctx context.Context, domain string, progress model.ProgressSink) (*model.CompetitorLandscape, error) {
	sites, err := a.traffic.SimilarSites(ctx, domain)
	if err != nil {
		return nil, eris.Wrapf(err, "competitor: similar sites for %s", domain)
	}

	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].SimilarityScore > sites[j].SimilarityScore
	})
	if len(sites) > a.maxSites {
		sites = sites[:a.maxSites]
	}

	landscape := &model.CompetitorLandscape{}
	for i, site := range sites {
		// Burst of one: the first candidate proceeds immediately, the rest
		// wait for a token.
		if err := a.limiter.Wait(ctx); err != nil {
			return landscape, err
		}
		if progress != nil {
			progress(model.ProgressEvent{
				Domain:    domain,
				Status:    model.RunStatusFetching,
				Step:      model.StepCompetitors,
				Message:   "analyzing competitor " + site.Domain,
				Candidate: site.Domain,
				Current:   i + 1,
				Total:     len(sites),
			})
		}

		comp := a.analyzeOne(ctx, site)
		landscape.Competitors = append(landscape.Competitors, comp)
		landscape.Analyzed++
		if comp.UsesReferenceProduct {
			landscape.UsingReferenceProduct++
		}
		if comp.SearchProvider != "" {
			landscape.WithSearchProvider++
		}

		if ctx.Err() != nil {
			return landscape, ctx.Err()
		}
	}

	return landscape, nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, site trafficstats.SimilarSite) model.Competitor {
	comp := model.Competitor{
		Domain:          site.Domain,
		SimilarityScore: site.SimilarityScore,
	}

	lookup, err := a.tech.Lookup(ctx, site.Domain)
	if err != nil {
		a.log.Warn("competitor tech lookup failed, using customer list",
			zap.String("domain", site.Domain),
			zap.Error(err),
		)
		comp.FetchDegraded = true
		comp.UsesReferenceProduct = a.rules.IsKnownCustomer(site.Domain)
		return comp
	}

	techs := make([]model.Technology, len(lookup.Technologies))
	for i, t := range lookup.Technologies {
		techs[i] = model.Technology{Name: t.Name, Category: t.Category}
	}

	stack := a.classifier.Categorize(techs)
	stack.MonthlySpendUSD = lookup.MonthlySpendUSD
	comp.TechStack = stack
	comp.SearchProvider = a.classifier.DetectSearchProvider(stack)
	comp.UsesReferenceProduct = a.classifier.UsesReferenceProduct(stack)
	return comp
}
