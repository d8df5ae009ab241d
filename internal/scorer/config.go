package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/config"
)

// DefaultConfig returns a config.ScorerConfig with the canonical component
// caps (vertical 40, traffic 30, tech spend 20, partner tech 10).
func DefaultConfig() config.ScorerConfig {
	return config.ScorerConfig{
		VerticalCap:    40,
		TrafficCap:     30,
		TechSpendCap:   20,
		PartnerTechCap: 10,

		PrimaryVerticals: []string{
			"ecommerce", "e-commerce", "retail", "fashion", "electronics",
			"grocery", "marketplace",
		},
		SecondaryVerticals: []string{
			"media", "travel", "b2b", "healthcare", "fintech",
		},
		SecondaryVerticalPoints: 25,
		BaseVerticalPoints:      10,
		PartnerPoints:           5,
	}
}

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	caps := map[string]int{
		"vertical_cap":     c.VerticalCap,
		"traffic_cap":      c.TrafficCap,
		"tech_spend_cap":   c.TechSpendCap,
		"partner_tech_cap": c.PartnerTechCap,
	}
	for name, v := range caps {
		if v < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := c.VerticalCap + c.TrafficCap + c.TechSpendCap + c.PartnerTechCap
	if sum != 100 {
		errs = append(errs, fmt.Sprintf("component caps must sum to 100, got %d", sum))
	}

	if c.SecondaryVerticalPoints > c.VerticalCap {
		errs = append(errs, "secondary_vertical_points must not exceed vertical_cap")
	}
	if c.BaseVerticalPoints > c.SecondaryVerticalPoints {
		errs = append(errs, "base_vertical_points must not exceed secondary_vertical_points")
	}
	if c.PartnerPoints <= 0 {
		errs = append(errs, "partner_points must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
