package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/hiring"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/resilience"
	"github.com/sells-group/signals-cli/pkg/salesforce"
	"github.com/sells-group/signals-cli/pkg/trafficstats"
)

// nowFunc stamps persisted records; overridable in tests.
var nowFunc = time.Now

// retryableStatus treats provider 429s and 5xx as retryable in addition to
// transport-level transient errors.
func retryableStatus(err error) bool {
	var se interface{ HTTPStatus() int }
	if errors.As(err, &se) {
		code := se.HTTPStatus()
		return code == 429 || code >= 500
	}
	return resilience.IsTransient(err)
}

// fetch wraps an adapter call with the per-service circuit breaker and the
// configured retry budget.
func fetch[T any](ctx context.Context, e *Enricher, service string, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg := e.retry
	cfg.ShouldRetry = retryableStatus
	cfg.OnRetry = resilience.RetryLogger(service, "fetch")
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (T, error) {
		return resilience.ExecuteVal(ctx, e.breakers.Get(service), fn)
	})
}

func (e *Enricher) stepTraffic(ctx context.Context, rec *model.EnrichedAccountRecord) (map[string]any, error) {
	res, err := fetch(ctx, e, "trafficstats", func(ctx context.Context) (*trafficstats.TrafficResult, error) {
		return e.traffic.Traffic(ctx, rec.Domain)
	})
	if err != nil {
		return nil, err
	}

	rec.Traffic = &model.TrafficStats{
		MonthlyVisits: res.MonthlyVisits,
		GlobalRank:    res.GlobalRank,
		BounceRate:    res.BounceRate,
		PagesPerVisit: res.PagesPerVisit,
		AvgVisitSecs:  res.AvgVisitDuration,
	}
	return map[string]any{
		"monthly_visits": res.MonthlyVisits,
		"global_rank":    res.GlobalRank,
	}, nil
}

func (e *Enricher) stepTechStack(ctx context.Context, rec *model.EnrichedAccountRecord) (map[string]any, error) {
	res, err := fetch(ctx, e, "techdetect", func(ctx context.Context) (*model.TechStackResult, error) {
		lookup, err := e.tech.Lookup(ctx, rec.Domain)
		if err != nil {
			return nil, err
		}
		techs := make([]model.Technology, 0, len(lookup.Technologies))
		for _, t := range lookup.Technologies {
			techs = append(techs, model.Technology{Name: t.Name, Category: t.Category})
		}
		stack := e.classifier.Categorize(techs)
		stack.MonthlySpendUSD = lookup.MonthlySpendUSD
		return stack, nil
	})
	if err != nil {
		return nil, err
	}

	rec.TechStack = res
	rec.SearchProvider = e.classifier.DetectSearchProvider(res)
	rec.PartnerTech = e.classifier.DetectPartnerTech(res)

	return map[string]any{
		"technologies":    len(res.Raw),
		"search_provider": rec.SearchProvider,
		"partner_tech":    len(rec.PartnerTech),
	}, nil
}

func (e *Enricher) stepCompetitors(ctx context.Context, rec *model.EnrichedAccountRecord) (map[string]any, error) {
	landscape, err := e.competitors.Analyze(ctx, rec.Domain, e.sink)
	if landscape != nil {
		// The analyzer returns a partial landscape on cancellation.
		rec.Competitors = landscape
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"analyzed":                landscape.Analyzed,
		"using_reference_product": landscape.UsingReferenceProduct,
	}, nil
}

func (e *Enricher) stepCaseStudy(_ context.Context, rec *model.EnrichedAccountRecord) (map[string]any, error) {
	studies := e.matcher.Match(rec.Vertical)
	rec.CaseStudies = studies
	return map[string]any{
		"vertical": rec.Vertical,
		"matches":  len(studies),
	}, nil
}

func (e *Enricher) stepHiring(ctx context.Context, rec *model.EnrichedAccountRecord) (map[string]any, error) {
	query := rec.CompanyName
	if query == "" {
		query = companyFromDomain(rec.Domain)
	}

	raw, err := fetch(ctx, e, "jobfeed", func(ctx context.Context) ([]hiring.Posting, error) {
		found, err := e.jobs.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		postings := make([]hiring.Posting, 0, len(found))
		for _, p := range found {
			postings = append(postings, hiring.Posting{
				Title:    p.Title,
				Employer: p.Employer,
				Location: p.Location,
				URL:      p.URL,
			})
		}
		return postings, nil
	})
	if err != nil {
		return nil, err
	}

	rec.Hiring = e.hiring.Analyze(query, raw)
	return map[string]any{
		"total_jobs":    rec.Hiring.TotalJobsFound,
		"relevant_jobs": rec.Hiring.RelevantJobs,
		"score":         rec.Hiring.Score,
		"strength":      rec.Hiring.Strength,
	}, nil
}

func (e *Enricher) stepInsights(ctx context.Context, rec *model.EnrichedAccountRecord) (map[string]any, error) {
	req := InsightsRequest(e.cfg.Anthropic, rec)
	resp, err := e.ai.CreateMessage(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: generate insights")
	}

	text := responseText(resp.Content)
	if text == "" {
		return nil, eris.New("enrich: empty insights response")
	}
	rec.Insights = text

	resp.Usage.LogCost(resp.Model, "insights")
	return map[string]any{
		"model":         resp.Model,
		"input_tokens":  resp.Usage.InputTokens,
		"output_tokens": resp.Usage.OutputTokens,
	}, nil
}

func (e *Enricher) stepPersist(ctx context.Context, rec *model.EnrichedAccountRecord) (map[string]any, error) {
	fields := FieldsFromRecord(rec)
	if err := e.store.UpsertAccount(ctx, rec.Domain, fields, nowFunc()); err != nil {
		return nil, eris.Wrap(err, "enrich: upsert account")
	}
	return map[string]any{"priority": rec.Scores.Priority, "status": rec.Scores.Status}, nil
}

func (e *Enricher) stepCRMSync(ctx context.Context, rec *model.EnrichedAccountRecord) (map[string]any, error) {
	acct, err := salesforce.FindAccountByWebsite(ctx, e.crm, rec.Domain)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"Website": rec.Domain,
	}
	if rec.CompanyName != "" {
		fields["Name"] = rec.CompanyName
	}
	if rec.Vertical != "" {
		fields["Industry"] = rec.Vertical
	}
	if rec.Scores != nil {
		fields["Description"] = fmt.Sprintf(
			"Signals priority %d (%s). ICP %d, hiring signal %d.",
			rec.Scores.Priority, rec.Scores.Status, rec.Scores.ICP.Total, rec.Scores.Signal,
		)
	}

	if acct != nil {
		if err := e.crm.UpdateOne(ctx, "Account", acct.ID, fields); err != nil {
			return nil, err
		}
		e.log.Debug("updated salesforce account",
			zap.String("domain", rec.Domain),
			zap.String("account_id", acct.ID))
		return map[string]any{"action": "updated", "account_id": acct.ID}, nil
	}

	if fields["Name"] == nil {
		fields["Name"] = companyFromDomain(rec.Domain)
	}
	id, err := e.crm.InsertOne(ctx, "Account", fields)
	if err != nil {
		return nil, err
	}
	e.log.Debug("created salesforce account",
		zap.String("domain", rec.Domain),
		zap.String("account_id", id))
	return map[string]any{"action": "created", "account_id": id}, nil
}

// FieldsFromRecord converts an accumulated record into a partial store
// update. Only populated sections are set so a degraded run never nulls out
// previously stored data.
func FieldsFromRecord(rec *model.EnrichedAccountRecord) model.AccountFields {
	fields := model.AccountFields{
		Traffic:     rec.Traffic,
		TechStack:   rec.TechStack,
		Competitors: rec.Competitors,
		Hiring:      rec.Hiring,
		Scores:      rec.Scores,
		PartnerTech: rec.PartnerTech,
		CaseStudies: rec.CaseStudies,
	}
	if rec.CompanyName != "" {
		fields.CompanyName = &rec.CompanyName
	}
	if rec.Vertical != "" {
		fields.Vertical = &rec.Vertical
	}
	if rec.SearchProvider != "" {
		fields.SearchProvider = &rec.SearchProvider
	}
	if rec.Insights != "" {
		fields.Insights = &rec.Insights
	}
	return fields
}

// companyFromDomain derives a display name from a bare domain, e.g.
// "acme-corp.com" becomes "Acme Corp".
func companyFromDomain(domain string) string {
	base := domain
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
