package hiring

import "github.com/sells-group/signals-cli/internal/model"

// Per-tier point values and caps for the signal score.
const (
	tier1Points, tier1Cap = 30, 60
	tier2Points, tier2Cap = 15, 45
	tier3Points, tier3Cap = 5, 20

	searchCategoryBonus        = 25
	ecommerceCategoryBonus     = 15
	merchandisingCategoryBonus = 10
)

// CalculateSignalScore computes the 0-100 hiring signal score from the tier
// breakdown and category counts. Each tier contributes capped points; the
// search, ecommerce, and merchandising categories add flat bonuses when
// present.
func CalculateSignalScore(tiers model.TierBreakdown, categories map[string]int) int {
	score := capped(tiers.Tier1*tier1Points, tier1Cap) +
		capped(tiers.Tier2*tier2Points, tier2Cap) +
		capped(tiers.Tier3*tier3Points, tier3Cap)

	if categories["search"] > 0 {
		score += searchCategoryBonus
	}
	if categories["ecommerce"] > 0 {
		score += ecommerceCategoryBonus
	}
	if categories["merchandising"] > 0 {
		score += merchandisingCategoryBonus
	}

	return capped(score, 100)
}

// SignalStrength maps a score to its qualitative label. Band lower bounds
// are inclusive.
func SignalStrength(score int) string {
	switch {
	case score >= 70:
		return "strong"
	case score >= 40:
		return "moderate"
	case score >= 15:
		return "weak"
	default:
		return "none"
	}
}

func capped(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}
