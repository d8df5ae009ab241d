package model

import "time"

// Step identifies one stage of the enrichment pipeline.
type Step string

const (
	StepTraffic     Step = "traffic"
	StepTechStack   Step = "techstack"
	StepCompetitors Step = "competitors"
	StepCaseStudy   Step = "casestudy"
	StepHiring      Step = "hiring"
	StepInsights    Step = "insights"
	StepPersist     Step = "persist"
	StepCRMSync     Step = "crm_sync"
)

// AllSteps lists the pipeline steps in execution order.
func AllSteps() []Step {
	return []Step{
		StepTraffic, StepTechStack, StepCompetitors, StepCaseStudy,
		StepHiring, StepInsights, StepPersist, StepCRMSync,
	}
}

// EnrichmentRequest describes a single enrichment job. Immutable once issued.
type EnrichmentRequest struct {
	Domain      string `json:"domain"`
	CompanyName string `json:"company_name,omitempty"`
	Vertical    string `json:"vertical,omitempty"`
	// Modules optionally restricts which steps run. Empty means all.
	Modules []Step `json:"modules,omitempty"`
	// Force re-enriches even if a fresh record already exists.
	Force bool `json:"force,omitempty"`
}

// WantsStep reports whether the request includes the given step.
func (r EnrichmentRequest) WantsStep(step Step) bool {
	if len(r.Modules) == 0 {
		return true
	}
	for _, m := range r.Modules {
		if m == step {
			return true
		}
	}
	return false
}

// Technology is a single detected technology with the provider's category hint.
type Technology struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// TrafficStats holds normalized traffic metrics for a domain.
type TrafficStats struct {
	MonthlyVisits int64   `json:"monthly_visits"`
	GlobalRank    int     `json:"global_rank,omitempty"`
	BounceRate    float64 `json:"bounce_rate,omitempty"`
	PagesPerVisit float64 `json:"pages_per_visit,omitempty"`
	AvgVisitSecs  float64 `json:"avg_visit_secs,omitempty"`
}

// TechStackResult holds the categorized technology stack for a domain.
// Every name in a category bucket also appears in Raw; a name may appear in
// any number of buckets.
type TechStackResult struct {
	Raw        []string `json:"raw"`
	CMS        []string `json:"cms,omitempty"`
	Ecommerce  []string `json:"ecommerce,omitempty"`
	Analytics  []string `json:"analytics,omitempty"`
	Search     []string `json:"search,omitempty"`
	CDN        []string `json:"cdn,omitempty"`
	Payment    []string `json:"payment,omitempty"`
	Marketing  []string `json:"marketing,omitempty"`
	Frameworks []string `json:"frameworks,omitempty"`

	// MonthlySpendUSD is the provider's estimated monthly technology spend.
	MonthlySpendUSD int `json:"monthly_spend_usd,omitempty"`
}

// Buckets returns the category buckets keyed by bucket name.
func (t *TechStackResult) Buckets() map[string][]string {
	return map[string][]string{
		"cms":        t.CMS,
		"ecommerce":  t.Ecommerce,
		"analytics":  t.Analytics,
		"search":     t.Search,
		"cdn":        t.CDN,
		"payment":    t.Payment,
		"marketing":  t.Marketing,
		"frameworks": t.Frameworks,
	}
}

// Competitor is a discovered similar domain. Created transiently per
// analysis run; persisted only inside CompetitorLandscape.
type Competitor struct {
	Domain               string  `json:"domain"`
	SimilarityScore      float64 `json:"similarity_score"`
	SearchProvider       string  `json:"search_provider,omitempty"`
	UsesReferenceProduct bool    `json:"uses_reference_product"`
	// FetchDegraded marks entries whose tech fetch failed and whose data
	// came from the static customer-list fallback instead.
	FetchDegraded bool             `json:"fetch_degraded,omitempty"`
	TechStack     *TechStackResult `json:"tech_stack,omitempty"`
}

// CompetitorLandscape aggregates a competitor analysis run.
type CompetitorLandscape struct {
	Competitors           []Competitor `json:"competitors"`
	Analyzed              int          `json:"analyzed"`
	UsingReferenceProduct int          `json:"using_reference_product"`
	WithSearchProvider    int          `json:"with_search_provider"`
}

// TierBreakdown counts relevant job postings by seniority tier.
type TierBreakdown struct {
	Tier1 int `json:"tier1"`
	Tier2 int `json:"tier2"`
	Tier3 int `json:"tier3"`
}

// RankedJob is one classified job posting retained in the hiring result.
type RankedJob struct {
	Title      string   `json:"title"`
	Tier       int      `json:"tier"`
	Categories []string `json:"categories"`
}

// HiringSignalResult summarizes hiring activity for a company.
// Invariant: RelevantJobs <= TotalJobsFound; the tier breakdown counts only
// relevant jobs.
type HiringSignalResult struct {
	TotalJobsFound    int            `json:"total_jobs_found"`
	RelevantJobs      int            `json:"relevant_jobs"`
	TierBreakdown     TierBreakdown  `json:"tier_breakdown"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
	Score             int            `json:"score"`
	Strength          string         `json:"strength"`
	TopJobs           []RankedJob    `json:"top_jobs,omitempty"`
}

// CaseStudy is curated, read-only reference data.
type CaseStudy struct {
	Title      string   `json:"title" yaml:"title"`
	Company    string   `json:"company" yaml:"company"`
	Vertical   string   `json:"vertical" yaml:"vertical"`
	URL        string   `json:"url" yaml:"url"`
	Highlights []string `json:"highlights,omitempty" yaml:"highlights,omitempty"`
}

// ScoreBreakdown holds the independently capped ICP score components.
// Invariant: Total equals the clamped sum of the components, bounded to [0,100].
type ScoreBreakdown struct {
	Vertical    int `json:"vertical"`
	Traffic     int `json:"traffic"`
	TechSpend   int `json:"tech_spend"`
	PartnerTech int `json:"partner_tech"`
	Total       int `json:"total"`
}

// AccountScores holds all scoring outputs for an account.
// Priority is ICP total plus signal score and may exceed 100.
type AccountScores struct {
	ICP      ScoreBreakdown `json:"icp"`
	Signal   int            `json:"signal"`
	Priority int            `json:"priority"`
	Status   string         `json:"status"`
}

// EnrichedAccountRecord is the aggregation target of the pipeline. It is
// written exactly once per run, by the persist step.
type EnrichedAccountRecord struct {
	Domain         string               `json:"domain"`
	CompanyName    string               `json:"company_name,omitempty"`
	Vertical       string               `json:"vertical,omitempty"`
	Traffic        *TrafficStats        `json:"traffic,omitempty"`
	TechStack      *TechStackResult     `json:"tech_stack,omitempty"`
	SearchProvider string               `json:"search_provider,omitempty"`
	PartnerTech    []string             `json:"partner_tech,omitempty"`
	Competitors    *CompetitorLandscape `json:"competitors,omitempty"`
	CaseStudies    []CaseStudy          `json:"case_studies,omitempty"`
	Hiring         *HiringSignalResult  `json:"hiring,omitempty"`
	Scores         *AccountScores       `json:"scores,omitempty"`
	Insights       string               `json:"insights,omitempty"`
	ObservedAt     time.Time            `json:"observed_at"`
	Fresh          bool                 `json:"fresh"`
}

// AccountFields is a partial update for an account record. Nil fields are
// left untouched by the store upsert.
type AccountFields struct {
	CompanyName    *string              `json:"company_name,omitempty"`
	Vertical       *string              `json:"vertical,omitempty"`
	Traffic        *TrafficStats        `json:"traffic,omitempty"`
	TechStack      *TechStackResult     `json:"tech_stack,omitempty"`
	SearchProvider *string              `json:"search_provider,omitempty"`
	PartnerTech    []string             `json:"partner_tech,omitempty"`
	Competitors    *CompetitorLandscape `json:"competitors,omitempty"`
	CaseStudies    []CaseStudy          `json:"case_studies,omitempty"`
	Hiring         *HiringSignalResult  `json:"hiring,omitempty"`
	Scores         *AccountScores       `json:"scores,omitempty"`
	Insights       *string              `json:"insights,omitempty"`
}
