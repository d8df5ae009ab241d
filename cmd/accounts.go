package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/signals-cli/internal/enrich"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect and export enriched accounts",
}

var accountsShowCmd = &cobra.Command{
	Use:   "show <domain>",
	Short: "Show the full enriched record for a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		domain := enrich.NormalizeDomain(args[0])
		acct, err := st.GetAccount(ctx, domain)
		if err != nil {
			return eris.Wrap(err, "get account")
		}
		if acct == nil {
			return eris.Errorf("no account found for %s", domain)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(acct)
	},
}

func init() {
	accountsCmd.AddCommand(accountsShowCmd)
	rootCmd.AddCommand(accountsCmd)
}
