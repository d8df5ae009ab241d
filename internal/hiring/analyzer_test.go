package hiring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/rules"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	rs, err := rules.Default()
	require.NoError(t, err)
	return NewAnalyzer(rs)
}

func TestClassifyTier(t *testing.T) {
	a := newTestAnalyzer(t)

	tests := []struct {
		title string
		want  int
	}{
		{"VP of Engineering", 1},
		{"Vice President, Digital", 1},
		{"CTO", 1},
		{"Chief Revenue Officer", 1},
		{"Head of Search", 1},
		{"Director of Ecommerce", 1},
		{"Principal Engineer", 1},
		{"Co-Founder", 1},
		{"Engineering Manager", 2},
		{"Tech Lead", 2},
		{"Solutions Architect", 2},
		{"Product Owner", 2},
		{"Product Manager", 2},
		{"Software Engineer", 3},
		{"Store Associate", 3},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, a.ClassifyTier(tt.title))
		})
	}
}

func TestClassifyTier_Tier1Precedence(t *testing.T) {
	a := newTestAnalyzer(t)

	// Titles matching both a tier-1 and a tier-2 pattern must be tier 1.
	for _, title := range []string{
		"Director of Product Management",
		"VP, Engineering Manager",
		"Head of Architecture (Lead Architect)",
	} {
		assert.Equal(t, 1, a.ClassifyTier(title), title)
	}
}

func TestClassifyCategories(t *testing.T) {
	a := newTestAnalyzer(t)

	t.Run("multiple categories", func(t *testing.T) {
		got := a.ClassifyCategories("Search Engineer, Ecommerce Platform")
		assert.Contains(t, got, "search")
		assert.Contains(t, got, "ecommerce")
		assert.Contains(t, got, "engineering")
	})

	t.Run("no category", func(t *testing.T) {
		assert.Empty(t, a.ClassifyCategories("Warehouse Operative"))
	})

	t.Run("merchandising stem", func(t *testing.T) {
		assert.Contains(t, a.ClassifyCategories("Merchandising Analyst"), "merchandising")
		assert.Contains(t, a.ClassifyCategories("Merchandiser"), "merchandising")
	})
}

func TestAnalyze_EmployerFilter(t *testing.T) {
	a := newTestAnalyzer(t)

	postings := []Posting{
		{Title: "Search Engineer", Employer: "Acme Corp"},
		{Title: "Search Engineer", Employer: "ACME CORP HOLDINGS"},
		{Title: "Search Engineer", Employer: "Globex"},
	}

	result := a.Analyze("Acme", postings)
	assert.Equal(t, 3, result.TotalJobsFound)
	assert.Equal(t, 2, result.RelevantJobs)
}

func TestAnalyze_NoMatchesIsTerminalZero(t *testing.T) {
	a := newTestAnalyzer(t)

	result := a.Analyze("Acme", []Posting{
		{Title: "VP of Search", Employer: "Globex"},
	})

	assert.Equal(t, 1, result.TotalJobsFound)
	assert.Zero(t, result.RelevantJobs)
	assert.Zero(t, result.Score)
	assert.Equal(t, "none", result.Strength)
	assert.Empty(t, result.TopJobs)
}

func TestAnalyze_EndToEnd(t *testing.T) {
	a := newTestAnalyzer(t)

	postings := []Posting{
		{Title: "VP of Search", Employer: "Acme"},
		{Title: "Software Engineer - Search", Employer: "Acme Inc"},
		{Title: "Store Associate", Employer: "Acme"},
	}

	result := a.Analyze("Acme", postings)

	assert.Equal(t, 3, result.TotalJobsFound)
	assert.Equal(t, 2, result.RelevantJobs)
	assert.Equal(t, model.TierBreakdown{Tier1: 1, Tier2: 0, Tier3: 1}, result.TierBreakdown)
	assert.Equal(t, map[string]int{"search": 2, "engineering": 1}, result.CategoryBreakdown)
	assert.Equal(t, 60, result.Score) // min(100, 30 + 5 + 25)
	assert.Equal(t, "moderate", result.Strength)

	// Decision-makers first.
	require.Len(t, result.TopJobs, 2)
	assert.Equal(t, "VP of Search", result.TopJobs[0].Title)
	assert.Equal(t, 1, result.TopJobs[0].Tier)
}

func TestAnalyze_TopJobsTruncated(t *testing.T) {
	a := newTestAnalyzer(t)

	var postings []Posting
	for i := 0; i < 30; i++ {
		postings = append(postings, Posting{Title: "Search Engineer", Employer: "Acme"})
	}
	postings = append(postings, Posting{Title: "VP of Search", Employer: "Acme"})

	result := a.Analyze("Acme", postings)
	require.Len(t, result.TopJobs, 20)
	assert.Equal(t, 1, result.TopJobs[0].Tier)
	assert.Equal(t, 31, result.RelevantJobs)
}

func TestAnalyze_RelevanceGateExcludesFromScoring(t *testing.T) {
	a := newTestAnalyzer(t)

	// A tier-1 title with no category match contributes nothing to scoring.
	result := a.Analyze("Acme", []Posting{
		{Title: "VP of Finance Operations", Employer: "Acme"},
	})

	assert.Equal(t, 1, result.TotalJobsFound)
	assert.Zero(t, result.RelevantJobs)
	assert.Zero(t, result.TierBreakdown.Tier1)
	assert.Zero(t, result.Score)
}
