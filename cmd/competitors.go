package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/signals-cli/internal/competitor"
	"github.com/sells-group/signals-cli/internal/enrich"
	"github.com/sells-group/signals-cli/pkg/techdetect"
	"github.com/sells-group/signals-cli/pkg/trafficstats"
)

var (
	competitorsDomain string
	competitorsCap    int
	competitorsJSON   bool
)

var competitorsCmd = &cobra.Command{
	Use:   "competitors",
	Short: "Deep competitor analysis for a domain",
	Long:  "Finds similar sites by traffic overlap, fetches each one's technology stack, and reports who runs our reference product or a rival search provider.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rs, err := initRules()
		if err != nil {
			return err
		}

		trafficClient := trafficstats.NewClient(cfg.TrafficStats.Key,
			trafficstats.WithBaseURL(cfg.TrafficStats.BaseURL),
			trafficstats.WithRateLimit(cfg.TrafficStats.RPS, cfg.TrafficStats.Burst))
		techClient := techdetect.NewClient(cfg.TechDetect.Key,
			techdetect.WithBaseURL(cfg.TechDetect.BaseURL),
			techdetect.WithRateLimit(cfg.TechDetect.RPS, cfg.TechDetect.Burst))

		opts := []competitor.Option{}
		if competitorsCap > 0 {
			opts = append(opts, competitor.WithCap(competitorsCap))
		} else if cfg.Enrich.CompetitorCap > 0 {
			opts = append(opts, competitor.WithCap(cfg.Enrich.CompetitorCap))
		}

		analyzer := competitor.NewAnalyzer(trafficClient, techClient, rs, opts...)

		domain := enrich.NormalizeDomain(competitorsDomain)
		landscape, err := analyzer.Analyze(ctx, domain, printProgress)
		if err != nil && landscape == nil {
			return eris.Wrap(err, "competitor analysis")
		}

		if competitorsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(landscape)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DOMAIN\tSIMILARITY\tSEARCH PROVIDER\tREFERENCE\tDEGRADED")
		for _, c := range landscape.Competitors {
			fmt.Fprintf(w, "%s\t%.2f\t%s\t%v\t%v\n",
				c.Domain, c.SimilarityScore, orDash(c.SearchProvider), c.UsesReferenceProduct, c.FetchDegraded)
		}
		w.Flush() //nolint:errcheck

		fmt.Printf("\n%d analyzed, %d using reference product, %d with a known search provider\n",
			landscape.Analyzed, landscape.UsingReferenceProduct, landscape.WithSearchProvider)
		return err
	},
}

func init() {
	f := competitorsCmd.Flags()
	f.StringVar(&competitorsDomain, "domain", "", "company domain (required)")
	f.IntVar(&competitorsCap, "cap", 0, "max competitors to analyze (default from config)")
	f.BoolVar(&competitorsJSON, "json", false, "output JSON instead of a table")
	_ = competitorsCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(competitorsCmd)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
