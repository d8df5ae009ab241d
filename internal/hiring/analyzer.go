// Package hiring classifies job postings by seniority tier and relevance
// category and derives a hiring signal score. Classification is pure and
// table-driven; the ruleset is injected at construction.
package hiring

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/rules"
)

// maxTopJobs bounds the ranked job list carried in the result.
const maxTopJobs = 20

// Posting is a raw job posting as returned by the job feed adapter.
type Posting struct {
	Title    string `json:"title"`
	Employer string `json:"employer"`
	Location string `json:"location,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Analyzer classifies postings against a fixed ruleset.
type Analyzer struct {
	rules  *rules.Ruleset
	folder cases.Caser
}

// NewAnalyzer creates an Analyzer bound to the given ruleset.
func NewAnalyzer(rs *rules.Ruleset) *Analyzer {
	return &Analyzer{
		rules:  rs,
		folder: cases.Fold(),
	}
}

// Analyze filters postings to the given company, classifies the remainder,
// and computes the hiring signal. Zero matching postings is a defined
// terminal state (strength "none"), not an error.
func (a *Analyzer) Analyze(companyName string, postings []Posting) *model.HiringSignalResult {
	result := &model.HiringSignalResult{
		TotalJobsFound:    len(postings),
		CategoryBreakdown: map[string]int{},
		Strength:          "none",
	}

	matched := a.filterByEmployer(companyName, postings)
	if len(matched) == 0 {
		return result
	}

	var ranked []model.RankedJob
	for _, p := range matched {
		categories := a.ClassifyCategories(p.Title)
		if len(categories) == 0 {
			// Irrelevant postings count toward the total only.
			continue
		}

		tier := a.ClassifyTier(p.Title)
		result.RelevantJobs++
		switch tier {
		case 1:
			result.TierBreakdown.Tier1++
		case 2:
			result.TierBreakdown.Tier2++
		default:
			result.TierBreakdown.Tier3++
		}
		for _, cat := range categories {
			result.CategoryBreakdown[cat]++
		}
		ranked = append(ranked, model.RankedJob{Title: p.Title, Tier: tier, Categories: categories})
	}

	// Decision-makers first.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Tier < ranked[j].Tier })
	if len(ranked) > maxTopJobs {
		ranked = ranked[:maxTopJobs]
	}
	result.TopJobs = ranked

	result.Score = CalculateSignalScore(result.TierBreakdown, result.CategoryBreakdown)
	result.Strength = SignalStrength(result.Score)
	return result
}

// ClassifyTier returns 1 for executive/leadership titles, 2 for
// management/senior IC titles, and 3 otherwise. Tier-1 patterns take strict
// precedence over tier-2.
func (a *Analyzer) ClassifyTier(title string) int {
	for _, re := range a.rules.Tier1Regexps() {
		if re.MatchString(title) {
			return 1
		}
	}
	for _, re := range a.rules.Tier2Regexps() {
		if re.MatchString(title) {
			return 2
		}
	}
	return 3
}

// ClassifyCategories returns every category whose keyword list has a
// substring match in the lower-cased title, in ruleset order.
func (a *Analyzer) ClassifyCategories(title string) []string {
	lower := strings.ToLower(title)
	var matched []string
	for _, cat := range a.rules.JobCategories {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, cat.Name)
				break
			}
		}
	}
	return matched
}

// filterByEmployer keeps postings whose employer contains the company name,
// case-folded. An empty company name matches nothing.
func (a *Analyzer) filterByEmployer(companyName string, postings []Posting) []Posting {
	needle := a.folder.String(strings.TrimSpace(companyName))
	if needle == "" {
		return nil
	}

	var matched []Posting
	for _, p := range postings {
		if strings.Contains(a.folder.String(p.Employer), needle) {
			matched = append(matched, p)
		}
	}
	return matched
}
