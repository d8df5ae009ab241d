package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/enrich"
	"github.com/sells-group/signals-cli/internal/rules"
	"github.com/sells-group/signals-cli/internal/store"
	anthropicpkg "github.com/sells-group/signals-cli/pkg/anthropic"
	"github.com/sells-group/signals-cli/pkg/jobfeed"
	"github.com/sells-group/signals-cli/pkg/notion"
	sfpkg "github.com/sells-group/signals-cli/pkg/salesforce"
	"github.com/sells-group/signals-cli/pkg/techdetect"
	"github.com/sells-group/signals-cli/pkg/trafficstats"
)

// env bundles the initialized clients shared by the enrichment commands.
type env struct {
	Store    store.Store
	Rules    *rules.Ruleset
	Enricher *enrich.Enricher
	Notion   notion.Client
	AI       anthropicpkg.Client
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv wires the store, rules, adapter clients, and the optional
// Anthropic/Salesforce integrations into a ready Enricher.
func initEnv(ctx context.Context, opts ...enrich.Option) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	rs, err := initRules()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	trafficClient := trafficstats.NewClient(cfg.TrafficStats.Key,
		trafficstats.WithBaseURL(cfg.TrafficStats.BaseURL),
		trafficstats.WithRateLimit(cfg.TrafficStats.RPS, cfg.TrafficStats.Burst))
	techClient := techdetect.NewClient(cfg.TechDetect.Key,
		techdetect.WithBaseURL(cfg.TechDetect.BaseURL),
		techdetect.WithRateLimit(cfg.TechDetect.RPS, cfg.TechDetect.Burst))
	jobsClient := jobfeed.NewClient(cfg.JobFeed.Key,
		jobfeed.WithBaseURL(cfg.JobFeed.BaseURL),
		jobfeed.WithRateLimit(cfg.JobFeed.RPS, cfg.JobFeed.Burst))

	e := &env{Store: st, Rules: rs}

	if cfg.Anthropic.Key != "" {
		e.AI = anthropicpkg.NewClient(cfg.Anthropic.Key)
		opts = append(opts, enrich.WithAnthropic(e.AI))
	}
	if cfg.Salesforce.ClientID != "" {
		sfClient, err := initSalesforce()
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		opts = append(opts, enrich.WithSalesforce(sfClient))
	}
	if cfg.Notion.Token != "" {
		e.Notion = notion.NewClient(cfg.Notion.Token)
	}

	enricher, err := enrich.New(cfg, st, rs, trafficClient, techClient, jobsClient, opts...)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	e.Enricher = enricher

	return e, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
}

func initRules() (*rules.Ruleset, error) {
	if cfg.Rules.Path != "" {
		rs, err := rules.LoadFile(cfg.Rules.Path)
		if err != nil {
			return nil, eris.Wrap(err, "load rules file")
		}
		zap.L().Info("loaded rules override", zap.String("path", cfg.Rules.Path))
		return rs, nil
	}
	return rules.Default()
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (SIGNALS_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}
