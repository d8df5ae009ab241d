package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/signals-cli/internal/enrich"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/store"
	"github.com/sells-group/signals-cli/pkg/notion"
)

var (
	batchFile          string
	batchLimit         int
	batchForce         bool
	batchSharedPrompts bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch enrich domains from a file or the Notion lead queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		leads, err := loadLeads(ctx, env)
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(leads) > batchLimit {
			leads = leads[:batchLimit]
		}
		if len(leads) == 0 {
			zap.L().Info("no leads to process")
			return nil
		}

		// Seeding first lets the store list queued accounts before any
		// enrichment lands.
		if err := seedLeads(ctx, env.Store, leads); err != nil {
			return err
		}

		// With shared prompts the per-domain insights step is deferred and
		// generated afterwards in one cached Anthropic batch.
		modules := []model.Step(nil)
		if batchSharedPrompts {
			modules = stepsExcept(model.StepInsights)
		}

		processed := processBatch(ctx, env, leads, modules)

		if batchSharedPrompts && env.AI != nil && len(processed) > 0 {
			if err := generateBatchInsights(ctx, env, processed); err != nil {
				zap.L().Error("batch insights failed", zap.Error(err))
			}
		}

		return nil
	},
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchFile, "file", "", "file with one domain per line (default: Notion lead queue)")
	f.IntVar(&batchLimit, "limit", 100, "max number of leads to process")
	f.BoolVar(&batchForce, "force", false, "re-enrich domains with fresh records")
	f.BoolVar(&batchSharedPrompts, "batch-insights", false, "generate insights in one cached Anthropic batch after enrichment")
	rootCmd.AddCommand(batchCmd)
}

// loadLeads reads the domain list from --file or the Notion lead queue.
func loadLeads(ctx context.Context, env *env) ([]notion.Lead, error) {
	if batchFile != "" {
		return leadsFromFile(batchFile)
	}

	if env.Notion == nil || cfg.Notion.LeadDB == "" {
		return nil, eris.New("either --file or notion token + lead DB must be configured")
	}

	pages, err := notion.QueryQueuedLeads(ctx, env.Notion, cfg.Notion.LeadDB)
	if err != nil {
		return nil, eris.Wrap(err, "query queued leads")
	}

	leads := make([]notion.Lead, 0, len(pages))
	for _, page := range pages {
		lead, err := notion.LeadFromPage(page)
		if err != nil {
			zap.L().Warn("skipping unusable lead page", zap.Error(err))
			continue
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// leadsFromFile parses one domain per line; a line may optionally carry a
// company name and vertical separated by commas.
func leadsFromFile(path string) ([]notion.Lead, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open lead file")
	}
	defer f.Close() //nolint:errcheck

	var leads []notion.Lead
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		lead := notion.Lead{Domain: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			lead.Name = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			lead.Vertical = strings.TrimSpace(parts[2])
		}
		leads = append(leads, lead)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "read lead file")
	}
	return leads, nil
}

func seedLeads(ctx context.Context, st store.Store, leads []notion.Lead) error {
	seeds := make([]store.AccountSeed, 0, len(leads))
	for _, lead := range leads {
		seeds = append(seeds, store.AccountSeed{
			Domain:      enrich.NormalizeDomain(lead.Domain),
			CompanyName: lead.Name,
			Vertical:    lead.Vertical,
		})
	}
	if _, err := st.SeedAccounts(ctx, seeds); err != nil {
		return eris.Wrap(err, "seed accounts")
	}
	return nil
}

// processBatch enriches leads concurrently. Individual failures do not abort
// the batch; failed Notion leads are flipped to "Failed" so they can be
// retried. Returns the domains whose runs persisted data.
func processBatch(ctx context.Context, env *env, leads []notion.Lead, modules []model.Step) []string {
	zap.L().Info("processing batch",
		zap.Int("leads", len(leads)),
		zap.Int("concurrency", cfg.Batch.MaxConcurrentDomains),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Batch.MaxConcurrentDomains)

	var succeeded, failed atomic.Int64
	processed := make([]string, len(leads))

	for i, lead := range leads {
		g.Go(func() error {
			domain := enrich.NormalizeDomain(lead.Domain)
			log := zap.L().With(zap.String("domain", domain))

			summary, err := env.Enricher.Enrich(gctx, model.EnrichmentRequest{
				Domain:      domain,
				CompanyName: lead.Name,
				Vertical:    lead.Vertical,
				Modules:     modules,
				Force:       batchForce,
			})
			if err != nil {
				failed.Add(1)
				log.Error("enrichment failed", zap.Error(err))
				markLead(gctx, env, lead, "Failed", err.Error())
				return nil // one bad domain never aborts the batch
			}

			succeeded.Add(1)
			processed[i] = domain
			log.Info("enrichment complete",
				zap.Int("priority", summary.PriorityScore),
				zap.String("status", summary.Status),
				zap.Bool("partial", summary.Partial),
			)
			markLead(gctx, env, lead, "Enriched", "")
			return nil
		})
	}

	_ = g.Wait()

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)

	var done []string
	for _, d := range processed {
		if d != "" {
			done = append(done, d)
		}
	}
	return done
}

func markLead(ctx context.Context, env *env, lead notion.Lead, status, note string) {
	if env.Notion == nil || lead.PageID == "" {
		return
	}
	if len(note) > 200 {
		note = note[:200]
	}
	if err := notion.MarkLeadStatus(ctx, env.Notion, lead.PageID, status, note); err != nil {
		zap.L().Warn("failed to update notion lead status",
			zap.String("page_id", lead.PageID),
			zap.Error(err))
	}
}

func stepsExcept(excluded model.Step) []model.Step {
	var steps []model.Step
	for _, s := range model.AllSteps() {
		if s != excluded {
			steps = append(steps, s)
		}
	}
	return steps
}
