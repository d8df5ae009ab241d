package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/store"
)

var (
	exportOutput      string
	exportStatus      string
	exportMinPriority int
	exportLimit       int
)

var accountsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export enriched accounts to an XLSX workbook",
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

		accounts, err := st.ListAccounts(ctx, store.AccountFilter{
			Status:      exportStatus,
			MinPriority: exportMinPriority,
			Limit:       exportLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list accounts")
		}
		if len(accounts) == 0 {
			return eris.New("no accounts to export")
		}

		if err := writeAccountsXLSX(exportOutput, accounts); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("output", exportOutput),
			zap.Int("accounts", len(accounts)),
		)
		return nil
	},
}

var exportHeader = []string{
	"Domain", "Company", "Vertical", "Monthly Visits", "Search Provider",
	"Partner Tech", "Tech Spend USD", "Competitors On Reference",
	"Hiring Score", "Hiring Strength", "ICP Score", "Signal Score",
	"Priority", "Status", "Observed At",
}

func writeAccountsXLSX(path string, accounts []model.EnrichedAccountRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Accounts")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().Value = h
	}

	for _, acct := range accounts {
		row := sheet.AddRow()
		addCells(row, accountCells(acct))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save file")
	}
	return nil
}

func accountCells(acct model.EnrichedAccountRecord) []string {
	visits, spend := "", ""
	if acct.Traffic != nil {
		visits = fmt.Sprintf("%d", acct.Traffic.MonthlyVisits)
	}
	if acct.TechStack != nil && acct.TechStack.MonthlySpendUSD > 0 {
		spend = fmt.Sprintf("%d", acct.TechStack.MonthlySpendUSD)
	}

	onReference := ""
	if acct.Competitors != nil {
		onReference = fmt.Sprintf("%d/%d", acct.Competitors.UsingReferenceProduct, acct.Competitors.Analyzed)
	}

	hiringScore, hiringStrength := "", ""
	if acct.Hiring != nil {
		hiringScore = fmt.Sprintf("%d", acct.Hiring.Score)
		hiringStrength = acct.Hiring.Strength
	}

	icp, signal, priority, status := "", "", "", ""
	if acct.Scores != nil {
		icp = fmt.Sprintf("%d", acct.Scores.ICP.Total)
		signal = fmt.Sprintf("%d", acct.Scores.Signal)
		priority = fmt.Sprintf("%d", acct.Scores.Priority)
		status = acct.Scores.Status
	}

	return []string{
		acct.Domain,
		acct.CompanyName,
		acct.Vertical,
		visits,
		acct.SearchProvider,
		strings.Join(acct.PartnerTech, ", "),
		spend,
		onReference,
		hiringScore,
		hiringStrength,
		icp,
		signal,
		priority,
		status,
		acct.ObservedAt.Format("2006-01-02 15:04"),
	}
}

func addCells(row *xlsx.Row, values []string) {
	for _, v := range values {
		row.AddCell().Value = v
	}
}

func init() {
	f := accountsExportCmd.Flags()
	f.StringVar(&exportOutput, "output", "accounts.xlsx", "output file path")
	f.StringVar(&exportStatus, "status", "", "filter by status")
	f.IntVar(&exportMinPriority, "min-priority", 0, "minimum priority score")
	f.IntVar(&exportLimit, "limit", 0, "max accounts to export (0 = all)")
	accountsCmd.AddCommand(accountsExportCmd)
}
