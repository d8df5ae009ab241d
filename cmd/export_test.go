package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/signals-cli/internal/model"
)

func TestWriteAccountsXLSX(t *testing.T) {
	accounts := []model.EnrichedAccountRecord{
		{
			Domain:         "acme.com",
			CompanyName:    "Acme",
			Vertical:       "ecommerce",
			SearchProvider: "Algolia",
			PartnerTech:    []string{"Shopify", "Klaviyo"},
			Traffic:        &model.TrafficStats{MonthlyVisits: 1_500_000},
			TechStack:      &model.TechStackResult{MonthlySpendUSD: 4000},
			Competitors:    &model.CompetitorLandscape{Analyzed: 5, UsingReferenceProduct: 2},
			Hiring:         &model.HiringSignalResult{Score: 75, Strength: "strong"},
			Scores: &model.AccountScores{
				ICP:      model.ScoreBreakdown{Total: 80},
				Signal:   75,
				Priority: 155,
				Status:   "hot",
			},
			ObservedAt: testObservedAt,
		},
		{Domain: "bare.io", ObservedAt: testObservedAt},
	}

	path := filepath.Join(t.TempDir(), "accounts.xlsx")
	require.NoError(t, writeAccountsXLSX(path, accounts))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Accounts", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "Domain", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "acme.com", sheet.Rows[1].Cells[0].Value)
	assert.Equal(t, "Shopify, Klaviyo", sheet.Rows[1].Cells[5].Value)
	assert.Equal(t, "2/5", sheet.Rows[1].Cells[7].Value)
	assert.Equal(t, "155", sheet.Rows[1].Cells[12].Value)
	assert.Equal(t, "hot", sheet.Rows[1].Cells[13].Value)

	// Sparse records export with empty cells, not zeros.
	assert.Equal(t, "bare.io", sheet.Rows[2].Cells[0].Value)
	assert.Equal(t, "", sheet.Rows[2].Cells[12].Value)
}
