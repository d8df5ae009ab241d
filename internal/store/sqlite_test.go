package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signals-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Runs ---

func TestSQLite_CreateAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "acme.com")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusPending, run.Status)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme.com", got.Domain)
	assert.Equal(t, model.RunStatusPending, got.Status)
	assert.Nil(t, got.Result)
}

func TestSQLite_GetRun_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_UpdateRunStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "acme.com")
	require.NoError(t, err)

	require.NoError(t, st.UpdateRunStatus(ctx, run.ID, model.RunStatusFetching))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFetching, got.Status)
}

func TestSQLite_UpdateRunStatus_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateRunStatus(context.Background(), "nonexistent", model.RunStatusComplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_UpdateRunResult(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "acme.com")
	require.NoError(t, err)

	summary := &model.RunSummary{
		Domain:        "acme.com",
		Completed:     []model.Step{model.StepTraffic, model.StepPersist},
		Partial:       true,
		PriorityScore: 85,
	}
	require.NoError(t, st.UpdateRunResult(ctx, run.ID, model.RunStatusPartial, summary))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPartial, got.Status)
	require.NotNil(t, got.Result)
	assert.True(t, got.Result.Partial)
	assert.Equal(t, 85, got.Result.PriorityScore)
	assert.Equal(t, []model.Step{model.StepTraffic, model.StepPersist}, got.Result.Completed)
}

func TestSQLite_ListRuns_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r1, err := st.CreateRun(ctx, "acme.com")
	require.NoError(t, err)
	_, err = st.CreateRun(ctx, "other.com")
	require.NoError(t, err)
	require.NoError(t, st.UpdateRunStatus(ctx, r1.ID, model.RunStatusComplete))

	complete, err := st.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, "acme.com", complete[0].Domain)

	byDomain, err := st.ListRuns(ctx, RunFilter{Domain: "other.com"})
	require.NoError(t, err)
	require.Len(t, byDomain, 1)
	assert.Equal(t, model.RunStatusPending, byDomain[0].Status)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// --- Accounts ---

func TestSQLite_GetAccount_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	rec, err := st.GetAccount(context.Background(), "nonexistent.com")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSQLite_UpsertAccount_PartialMerge(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// First write: traffic only.
	err := st.UpsertAccount(ctx, "acme.com", model.AccountFields{
		Traffic: &model.TrafficStats{MonthlyVisits: 500000},
	}, now)
	require.NoError(t, err)

	// Second write: hiring only. Traffic must survive.
	err = st.UpsertAccount(ctx, "acme.com", model.AccountFields{
		Hiring: &model.HiringSignalResult{Score: 60, Strength: "moderate"},
	}, now.Add(time.Hour))
	require.NoError(t, err)

	rec, err := st.GetAccount(ctx, "acme.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, rec.Traffic)
	assert.Equal(t, int64(500000), rec.Traffic.MonthlyVisits)
	require.NotNil(t, rec.Hiring)
	assert.Equal(t, 60, rec.Hiring.Score)
	assert.Nil(t, rec.TechStack)
}

func TestSQLite_UpsertAccount_FullRecord(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	name := "Acme Corp"
	vertical := "fashion"
	provider := "Algolia"
	insights := "Strong search hiring signal."
	err := st.UpsertAccount(ctx, "acme.com", model.AccountFields{
		CompanyName:    &name,
		Vertical:       &vertical,
		SearchProvider: &provider,
		Insights:       &insights,
		TechStack: &model.TechStackResult{
			Raw:    []string{"Shopify Plus", "Algolia"},
			Search: []string{"Algolia"},
		},
		PartnerTech: []string{"Shopify Plus"},
		Competitors: &model.CompetitorLandscape{
			Competitors: []model.Competitor{{Domain: "rival.com", SimilarityScore: 0.8}},
			Analyzed:    1,
		},
		CaseStudies: []model.CaseStudy{{Title: "Fashion search revamp", Vertical: "fashion"}},
		Scores: &model.AccountScores{
			ICP:      model.ScoreBreakdown{Total: 72},
			Signal:   60,
			Priority: 132,
			Status:   "hot",
		},
	}, time.Now().UTC())
	require.NoError(t, err)

	rec, err := st.GetAccount(ctx, "acme.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Acme Corp", rec.CompanyName)
	assert.Equal(t, "Algolia", rec.SearchProvider)
	assert.Equal(t, []string{"Shopify Plus"}, rec.PartnerTech)
	require.NotNil(t, rec.Competitors)
	assert.Equal(t, 1, rec.Competitors.Analyzed)
	require.Len(t, rec.CaseStudies, 1)
	require.NotNil(t, rec.Scores)
	assert.Equal(t, 132, rec.Scores.Priority)
	assert.Equal(t, "hot", rec.Scores.Status)
}

func TestSQLite_ListAccounts_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, acct := range []struct {
		domain   string
		priority int
		status   string
	}{
		{"hot.com", 120, "hot"},
		{"warm.com", 75, "warm"},
		{"cold.com", 12, "cold"},
	} {
		err := st.UpsertAccount(ctx, acct.domain, model.AccountFields{
			Scores: &model.AccountScores{Priority: acct.priority, Status: acct.status},
		}, now)
		require.NoError(t, err)
	}

	hot, err := st.ListAccounts(ctx, AccountFilter{Status: "hot"})
	require.NoError(t, err)
	require.Len(t, hot, 1)
	assert.Equal(t, "hot.com", hot[0].Domain)

	ranked, err := st.ListAccounts(ctx, AccountFilter{MinPriority: 50})
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	// Descending by priority.
	assert.Equal(t, "hot.com", ranked[0].Domain)
	assert.Equal(t, "warm.com", ranked[1].Domain)
}

func TestSQLite_SeedAccounts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.SeedAccounts(ctx, []AccountSeed{
		{Domain: "acme.com", CompanyName: "Acme Corp", Vertical: "fashion"},
		{Domain: "other.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rec, err := st.GetAccount(ctx, "acme.com")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Acme Corp", rec.CompanyName)
	assert.Equal(t, "fashion", rec.Vertical)
}

func TestSQLite_SeedAccounts_KeepsEnrichment(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.UpsertAccount(ctx, "acme.com", model.AccountFields{
		Traffic: &model.TrafficStats{MonthlyVisits: 1000},
	}, time.Now().UTC())
	require.NoError(t, err)

	// Re-seeding without a company name must not wipe enrichment data.
	_, err = st.SeedAccounts(ctx, []AccountSeed{{Domain: "acme.com"}})
	require.NoError(t, err)

	rec, err := st.GetAccount(ctx, "acme.com")
	require.NoError(t, err)
	require.NotNil(t, rec.Traffic)
	assert.Equal(t, int64(1000), rec.Traffic.MonthlyVisits)
}

func TestSQLite_SeedAccounts_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.SeedAccounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
