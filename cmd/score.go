package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/scorer"
	"github.com/sells-group/signals-cli/internal/store"
)

var (
	scoreRecompute   bool
	scoreStatus      string
	scoreMinPriority int
	scoreLimit       int
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rank stored accounts by priority",
	Long: `Lists enriched accounts ordered by priority score. With --recompute the
ICP breakdown, signal score, and status are re-derived from the stored
signals, which picks up changes to scorer weights or status thresholds
without re-fetching any source.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		rs, err := initRules()
		if err != nil {
			return err
		}

		accounts, err := st.ListAccounts(ctx, store.AccountFilter{
			Status:      scoreStatus,
			MinPriority: scoreMinPriority,
			Limit:       scoreLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list accounts")
		}
		if len(accounts) == 0 {
			fmt.Fprintln(os.Stderr, "No accounts found.")
			return nil
		}

		if scoreRecompute {
			if err := scorer.ValidateConfig(cfg.Scorer); err != nil {
				return err
			}
			sc := scorer.New(cfg.Scorer, rs.StatusThresholds)
			for i := range accounts {
				rescored := rescore(sc, &accounts[i])
				accounts[i].Scores = &rescored
				fields := model.AccountFields{Scores: accounts[i].Scores}
				if err := st.UpsertAccount(ctx, accounts[i].Domain, fields, time.Now()); err != nil {
					zap.L().Warn("failed to store rescored account",
						zap.String("domain", accounts[i].Domain),
						zap.Error(err))
				}
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DOMAIN\tCOMPANY\tVERTICAL\tICP\tSIGNAL\tPRIORITY\tSTATUS")
		for _, acct := range accounts {
			icp, signal, priority, status := 0, 0, 0, "-"
			if acct.Scores != nil {
				icp = acct.Scores.ICP.Total
				signal = acct.Scores.Signal
				priority = acct.Scores.Priority
				status = acct.Scores.Status
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				acct.Domain, orDash(acct.CompanyName), orDash(acct.Vertical),
				icp, signal, priority, status)
		}
		return w.Flush()
	},
}

func init() {
	f := scoreCmd.Flags()
	f.BoolVar(&scoreRecompute, "recompute", false, "re-derive scores from stored signals and save them")
	f.StringVar(&scoreStatus, "status", "", "filter by status (hot, warm, cool, nurture)")
	f.IntVar(&scoreMinPriority, "min-priority", 0, "minimum priority score")
	f.IntVar(&scoreLimit, "limit", 50, "max accounts to list")
	rootCmd.AddCommand(scoreCmd)
}

// rescore re-derives the full scoring output from an account's stored signals.
func rescore(sc *scorer.Scorer, acct *model.EnrichedAccountRecord) model.AccountScores {
	in := scorer.Input{
		Vertical:    acct.Vertical,
		PartnerTech: acct.PartnerTech,
	}
	if acct.Traffic != nil {
		in.MonthlyVisits = acct.Traffic.MonthlyVisits
	}
	if acct.TechStack != nil {
		in.MonthlySpendUSD = acct.TechStack.MonthlySpendUSD
	}
	if acct.Hiring != nil {
		in.SignalScore = acct.Hiring.Score
	}
	return sc.Score(in)
}
