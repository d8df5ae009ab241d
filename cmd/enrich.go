package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/signals-cli/internal/enrich"
	"github.com/sells-group/signals-cli/internal/model"
)

var (
	enrichDomain   string
	enrichCompany  string
	enrichVertical string
	enrichModules  []string
	enrichForce    bool
	enrichQuiet    bool
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a single domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var opts []enrich.Option
		if !enrichQuiet {
			opts = append(opts, enrich.WithProgressSink(printProgress))
		}

		env, err := initEnv(ctx, opts...)
		if err != nil {
			return err
		}
		defer env.Close()

		modules, err := parseModules(enrichModules)
		if err != nil {
			return err
		}

		summary, err := env.Enricher.Enrich(ctx, model.EnrichmentRequest{
			Domain:      enrichDomain,
			CompanyName: enrichCompany,
			Vertical:    enrichVertical,
			Modules:     modules,
			Force:       enrichForce,
		})
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	f := enrichCmd.Flags()
	f.StringVar(&enrichDomain, "domain", "", "company domain (required)")
	f.StringVar(&enrichCompany, "company", "", "company display name")
	f.StringVar(&enrichVertical, "vertical", "", "company vertical, e.g. ecommerce")
	f.StringSliceVar(&enrichModules, "modules", nil, "restrict to specific steps (traffic,techstack,competitors,casestudy,hiring,insights,persist,crm_sync)")
	f.BoolVar(&enrichForce, "force", false, "re-enrich even if a fresh record exists")
	f.BoolVar(&enrichQuiet, "quiet", false, "suppress progress output")
	_ = enrichCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(enrichCmd)
}

// parseModules validates step names against the pipeline's step set.
func parseModules(names []string) ([]model.Step, error) {
	if len(names) == 0 {
		return nil, nil
	}

	valid := make(map[model.Step]bool, len(model.AllSteps()))
	for _, s := range model.AllSteps() {
		valid[s] = true
	}

	steps := make([]model.Step, 0, len(names))
	for _, name := range names {
		step := model.Step(name)
		if !valid[step] {
			return nil, eris.Errorf("unknown module %q", name)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func printProgress(ev model.ProgressEvent) {
	if ev.Step != "" {
		fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", ev.Status, ev.Step, ev.Message)
		return
	}
	fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Status, ev.Message)
}
