// Package enrich runs the account enrichment pipeline: source adapters feed
// classifiers and scorers, the merged record is persisted once per run, and
// every step outcome is tracked on the run summary. Steps degrade
// independently; only a persistence failure aborts the run.
package enrich

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/casestudy"
	"github.com/sells-group/signals-cli/internal/competitor"
	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/internal/hiring"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/resilience"
	"github.com/sells-group/signals-cli/internal/rules"
	"github.com/sells-group/signals-cli/internal/scorer"
	"github.com/sells-group/signals-cli/internal/store"
	"github.com/sells-group/signals-cli/internal/techstack"
	"github.com/sells-group/signals-cli/pkg/anthropic"
	"github.com/sells-group/signals-cli/pkg/jobfeed"
	"github.com/sells-group/signals-cli/pkg/salesforce"
	"github.com/sells-group/signals-cli/pkg/techdetect"
	"github.com/sells-group/signals-cli/pkg/trafficstats"
)

// Enricher orchestrates one enrichment run per domain.
type Enricher struct {
	cfg   *config.Config
	store store.Store
	rules *rules.Ruleset

	traffic trafficstats.Client
	tech    techdetect.Client
	jobs    jobfeed.Client
	ai      anthropic.Client
	crm     salesforce.Client

	classifier  *techstack.Classifier
	hiring      *hiring.Analyzer
	matcher     *casestudy.Matcher
	scorer      *scorer.Scorer
	competitors *competitor.Analyzer

	retry    resilience.RetryConfig
	breakers *resilience.ServiceBreakers

	sink model.ProgressSink
	log  *zap.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithAnthropic enables the insights step.
func WithAnthropic(c anthropic.Client) Option {
	return func(e *Enricher) { e.ai = c }
}

// WithSalesforce enables the CRM sync step.
func WithSalesforce(c salesforce.Client) Option {
	return func(e *Enricher) { e.crm = c }
}

// WithProgressSink sets the progress event sink.
func WithProgressSink(sink model.ProgressSink) Option {
	return func(e *Enricher) { e.sink = sink }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Enricher) { e.log = log }
}

// New creates an Enricher. The anthropic and salesforce clients are optional;
// without them the insights and crm_sync steps report as skipped.
func New(
	cfg *config.Config,
	st store.Store,
	rs *rules.Ruleset,
	traffic trafficstats.Client,
	tech techdetect.Client,
	jobs jobfeed.Client,
	opts ...Option,
) (*Enricher, error) {
	if err := scorer.ValidateConfig(cfg.Scorer); err != nil {
		return nil, eris.Wrap(err, "enrich: scorer config")
	}

	matcher, err := casestudy.NewMatcher()
	if err != nil {
		return nil, eris.Wrap(err, "enrich: load case studies")
	}

	classifier := techstack.NewClassifier(rs)

	e := &Enricher{
		cfg:        cfg,
		store:      st,
		rules:      rs,
		traffic:    traffic,
		tech:       tech,
		jobs:       jobs,
		classifier: classifier,
		hiring:     hiring.NewAnalyzer(rs),
		matcher:    matcher,
		scorer:     scorer.New(cfg.Scorer, rs.StatusThresholds),
		retry: resilience.FromRetryConfig(
			cfg.Enrich.RetryAttempts, 500, 10_000, 2.0, 0.2,
		),
		breakers: resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig()),
		sink:     func(model.ProgressEvent) {},
		log:      zap.L(),
	}
	for _, opt := range opts {
		opt(e)
	}

	compOpts := []competitor.Option{competitor.WithLogger(e.log)}
	if cfg.Enrich.CompetitorCap > 0 {
		compOpts = append(compOpts, competitor.WithCap(cfg.Enrich.CompetitorCap))
	}
	e.competitors = competitor.NewAnalyzer(traffic, tech, rs, compOpts...)

	return e, nil
}

// Enrich runs the full pipeline for one domain and returns the run summary.
// Source step failures degrade the run to partial; a persistence failure
// returns an error alongside the summary that records it.
func (e *Enricher) Enrich(ctx context.Context, req model.EnrichmentRequest) (*model.RunSummary, error) {
	domain := NormalizeDomain(req.Domain)
	if domain == "" {
		return nil, eris.New("enrich: empty domain")
	}

	if !req.Force {
		if summary, fresh := e.freshSkip(ctx, domain, req); fresh {
			return summary, nil
		}
	}

	run, err := e.store.CreateRun(ctx, domain)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: create run")
	}

	log := e.log.With(zap.String("run_id", run.ID), zap.String("domain", domain))
	log.Info("enrichment run started")

	e.setStatus(ctx, run, model.RunStatusFetching, "fetching sources")

	summary := &model.RunSummary{Domain: domain}
	rec := &model.EnrichedAccountRecord{Domain: domain}
	if req.CompanyName != "" {
		rec.CompanyName = req.CompanyName
	}
	if req.Vertical != "" {
		rec.Vertical = req.Vertical
	}

	type stepDef struct {
		step model.Step
		fn   func(context.Context, *model.EnrichedAccountRecord) (map[string]any, error)
	}
	sourceSteps := []stepDef{
		{model.StepTraffic, e.stepTraffic},
		{model.StepTechStack, e.stepTechStack},
		{model.StepCompetitors, e.stepCompetitors},
		{model.StepCaseStudy, e.stepCaseStudy},
		{model.StepHiring, e.stepHiring},
	}

	runStep := func(sd stepDef) {
		if summary.Cancelled || ctx.Err() != nil {
			summary.Cancelled = true
			e.skipStep(summary, sd.step, "run cancelled")
			return
		}
		if !req.WantsStep(sd.step) {
			e.skipStep(summary, sd.step, "not requested")
			return
		}
		failure := e.trackStep(ctx, run, summary, sd.step, log, func(ctx context.Context) (map[string]any, error) {
			return sd.fn(ctx, rec)
		})
		if failure != nil && errors.Is(ctx.Err(), context.Canceled) {
			summary.Cancelled = true
		}
	}

	for _, sd := range sourceSteps {
		runStep(sd)
	}

	// Scores come before insights so the briefing can cite them.
	e.applyScores(rec, summary)

	if e.ai == nil && req.WantsStep(model.StepInsights) {
		e.skipStep(summary, model.StepInsights, "no anthropic client configured")
	} else {
		runStep(stepDef{model.StepInsights, e.stepInsights})
	}

	// Persistence runs even when the caller cancelled mid-run so partial
	// source data is not lost.
	persistCtx := ctx
	if summary.Cancelled {
		persistCtx = context.WithoutCancel(ctx)
	}
	e.setStatus(persistCtx, run, model.RunStatusUpdating, "writing account record")

	if req.WantsStep(model.StepPersist) {
		failure := e.trackStep(persistCtx, run, summary, model.StepPersist, log, func(ctx context.Context) (map[string]any, error) {
			return e.stepPersist(ctx, rec)
		})
		if failure != nil && failure.Fatal() {
			summary.Error = failure.Message
			e.finishRun(persistCtx, run, summary, model.RunStatusError, log)
			return summary, eris.Wrap(failure, "enrich: persist")
		}
	} else {
		e.skipStep(summary, model.StepPersist, "not requested")
	}

	if req.WantsStep(model.StepCRMSync) {
		if e.crm == nil {
			e.skipStep(summary, model.StepCRMSync, "no salesforce client configured")
		} else {
			e.trackStep(persistCtx, run, summary, model.StepCRMSync, log, func(ctx context.Context) (map[string]any, error) {
				return e.stepCRMSync(ctx, rec)
			})
		}
	} else {
		e.skipStep(summary, model.StepCRMSync, "not requested")
	}

	status := model.RunStatusComplete
	if len(summary.Failed) > 0 || summary.Cancelled {
		summary.Partial = true
		status = model.RunStatusPartial
	}
	e.finishRun(persistCtx, run, summary, status, log)

	return summary, nil
}

// freshSkip reports whether a fresh record already exists for the domain. On
// a skip it returns a summary whose steps are all marked skipped.
func (e *Enricher) freshSkip(ctx context.Context, domain string, req model.EnrichmentRequest) (*model.RunSummary, bool) {
	acct, err := e.store.GetAccount(ctx, domain)
	if err != nil || acct == nil {
		return nil, false
	}
	ttl := time.Duration(e.cfg.Enrich.FreshTTLHours) * time.Hour
	if ttl <= 0 || time.Since(acct.ObservedAt) >= ttl {
		return nil, false
	}

	summary := &model.RunSummary{Domain: domain}
	for _, step := range model.AllSteps() {
		if req.WantsStep(step) {
			e.skipStep(summary, step, "record is fresh")
		}
	}
	if acct.Scores != nil {
		summary.PriorityScore = acct.Scores.Priority
		summary.Status = acct.Scores.Status
	}

	e.log.Info("skipping fresh domain",
		zap.String("domain", domain),
		zap.Time("observed_at", acct.ObservedAt))
	e.sink(model.ProgressEvent{
		Domain:  domain,
		Status:  model.RunStatusComplete,
		Message: "record is fresh, skipping",
	})
	return summary, true
}

// trackStep runs fn as a named pipeline step: it emits progress events, times
// the call, classifies any failure, and records the result on the summary.
func (e *Enricher) trackStep(
	ctx context.Context,
	run *model.Run,
	summary *model.RunSummary,
	step model.Step,
	log *zap.Logger,
	fn func(context.Context) (map[string]any, error),
) *model.StepFailure {
	e.sink(model.ProgressEvent{
		Domain:  run.Domain,
		Status:  run.Status,
		Step:    step,
		Message: "running " + string(step),
	})

	start := time.Now()
	metadata, err := fn(ctx)
	elapsed := time.Since(start)

	result := model.StepResult{
		Step:     step,
		Duration: elapsed.Milliseconds(),
		Metadata: metadata,
	}

	var failure *model.StepFailure
	if err != nil {
		failure = classifyFailure(step, err)
		result.Status = model.StepStatusFailed
		result.Failure = failure
		summary.Failed = append(summary.Failed, *failure)
		log.Warn("step failed",
			zap.String("step", string(step)),
			zap.String("kind", string(failure.Kind)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	} else {
		result.Status = model.StepStatusComplete
		summary.Completed = append(summary.Completed, step)
		log.Info("step complete",
			zap.String("step", string(step)),
			zap.Duration("elapsed", elapsed))
	}
	summary.Steps = append(summary.Steps, result)

	evStatus := run.Status
	msg := string(step) + " complete"
	if failure != nil {
		evStatus = model.RunStatusError
		msg = string(step) + " failed: " + failure.Message
	}
	e.sink(model.ProgressEvent{
		Domain:  run.Domain,
		Status:  evStatus,
		Step:    step,
		Message: msg,
	})

	return failure
}

func (e *Enricher) skipStep(summary *model.RunSummary, step model.Step, reason string) {
	summary.Steps = append(summary.Steps, model.StepResult{
		Step:     step,
		Status:   model.StepStatusSkipped,
		Metadata: map[string]any{"reason": reason},
	})
}

func (e *Enricher) setStatus(ctx context.Context, run *model.Run, status model.RunStatus, msg string) {
	run.Status = status
	if err := e.store.UpdateRunStatus(ctx, run.ID, status); err != nil {
		e.log.Warn("failed to update run status",
			zap.String("run_id", run.ID),
			zap.Error(err))
	}
	e.sink(model.ProgressEvent{Domain: run.Domain, Status: status, Message: msg})
}

func (e *Enricher) finishRun(ctx context.Context, run *model.Run, summary *model.RunSummary, status model.RunStatus, log *zap.Logger) {
	run.Status = status
	if err := e.store.UpdateRunResult(ctx, run.ID, status, summary); err != nil {
		log.Warn("failed to record run result", zap.Error(err))
	}
	log.Info("enrichment run finished",
		zap.String("status", string(status)),
		zap.Int("completed", len(summary.Completed)),
		zap.Int("failed", len(summary.Failed)),
		zap.Int("priority", summary.PriorityScore))
	// Progress statuses are a smaller vocabulary than run statuses: a
	// degraded run that still persisted reports complete to the sink,
	// with the run status carried in the message.
	evStatus := model.RunStatusComplete
	if status == model.RunStatusError {
		evStatus = model.RunStatusError
	}
	e.sink(model.ProgressEvent{
		Domain:  run.Domain,
		Status:  evStatus,
		Message: "run " + string(status),
	})
}

// applyScores computes the ICP breakdown, combined priority, and status from
// whatever the source steps gathered, then stamps the summary.
func (e *Enricher) applyScores(rec *model.EnrichedAccountRecord, summary *model.RunSummary) {
	in := scorer.Input{Vertical: rec.Vertical}
	if rec.Traffic != nil {
		in.MonthlyVisits = rec.Traffic.MonthlyVisits
	}
	if rec.TechStack != nil {
		in.MonthlySpendUSD = rec.TechStack.MonthlySpendUSD
	}
	in.PartnerTech = rec.PartnerTech
	if rec.Hiring != nil {
		in.SignalScore = rec.Hiring.Score
	}

	scores := e.scorer.Score(in)
	rec.Scores = &scores
	summary.PriorityScore = scores.Priority
	summary.Status = scores.Status
}

// NormalizeDomain lowercases a domain and strips any scheme, path, and
// leading www prefix so the store key is canonical.
func NormalizeDomain(raw string) string {
	d := strings.TrimSpace(strings.ToLower(raw))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, ".")
}
