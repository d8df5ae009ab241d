// Package scorer computes the weighted ICP and priority scores used to rank
// accounts for outreach. Scoring is pure and synchronous; all tunables come
// from config and the status thresholds from the injected ruleset.
package scorer

import (
	"strings"

	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/rules"
)

// Input holds the company attributes consumed by the scorer.
type Input struct {
	Vertical        string
	MonthlyVisits   int64
	MonthlySpendUSD int
	PartnerTech     []string
	// SignalScore is the 0-100 hiring signal score, computed separately.
	SignalScore int
}

// Scorer computes ScoreBreakdowns from company attributes.
type Scorer struct {
	cfg        config.ScorerConfig
	thresholds rules.StatusThresholds
}

// New creates a Scorer with the given weights and status thresholds.
func New(cfg config.ScorerConfig, thresholds rules.StatusThresholds) *Scorer {
	return &Scorer{cfg: cfg, thresholds: thresholds}
}

// Score computes the full scoring output for one account. The ICP total is
// the clamped sum of four independently capped components; the priority
// score adds the hiring signal on top and is not jointly capped.
func (s *Scorer) Score(in Input) model.AccountScores {
	breakdown := model.ScoreBreakdown{
		Vertical:    s.scoreVertical(in.Vertical),
		Traffic:     s.scoreTraffic(in.MonthlyVisits),
		TechSpend:   s.scoreTechSpend(in.MonthlySpendUSD),
		PartnerTech: s.scorePartnerTech(len(in.PartnerTech)),
	}
	breakdown.Total = clamp(breakdown.Vertical+breakdown.Traffic+breakdown.TechSpend+breakdown.PartnerTech, 0, 100)

	priority := breakdown.Total + in.SignalScore
	return model.AccountScores{
		ICP:      breakdown,
		Signal:   in.SignalScore,
		Priority: priority,
		Status:   s.StatusFor(priority),
	}
}

// StatusFor maps a priority score to the canonical four-tier status bucket.
func (s *Scorer) StatusFor(priority int) string {
	switch {
	case priority >= s.thresholds.Hot:
		return "hot"
	case priority >= s.thresholds.Warm:
		return "warm"
	case priority >= s.thresholds.Cool:
		return "cool"
	default:
		return "cold"
	}
}

func (s *Scorer) scoreVertical(vertical string) int {
	v := strings.ToLower(strings.TrimSpace(vertical))
	if v == "" {
		return 0
	}
	for _, primary := range s.cfg.PrimaryVerticals {
		if strings.Contains(v, strings.ToLower(primary)) {
			return s.cfg.VerticalCap
		}
	}
	for _, secondary := range s.cfg.SecondaryVerticals {
		if strings.Contains(v, strings.ToLower(secondary)) {
			return s.cfg.SecondaryVerticalPoints
		}
	}
	return s.cfg.BaseVerticalPoints
}

func (s *Scorer) scoreTraffic(visits int64) int {
	switch {
	case visits >= 10_000_000:
		return s.cfg.TrafficCap
	case visits >= 1_000_000:
		return capAt(22, s.cfg.TrafficCap)
	case visits >= 100_000:
		return capAt(15, s.cfg.TrafficCap)
	case visits >= 10_000:
		return capAt(8, s.cfg.TrafficCap)
	case visits > 0:
		return capAt(3, s.cfg.TrafficCap)
	default:
		return 0
	}
}

func (s *Scorer) scoreTechSpend(monthlyUSD int) int {
	switch {
	case monthlyUSD >= 5000:
		return s.cfg.TechSpendCap
	case monthlyUSD >= 2000:
		return capAt(15, s.cfg.TechSpendCap)
	case monthlyUSD >= 500:
		return capAt(10, s.cfg.TechSpendCap)
	case monthlyUSD > 0:
		return capAt(5, s.cfg.TechSpendCap)
	default:
		return 0
	}
}

// capAt keeps a fixed mid-band value under the component's configured cap
// so no band can ever outscore the top one.
func capAt(points, ceiling int) int {
	if points > ceiling {
		return ceiling
	}
	return points
}

func (s *Scorer) scorePartnerTech(count int) int {
	points := count * s.cfg.PartnerPoints
	if points > s.cfg.PartnerTechCap {
		return s.cfg.PartnerTechCap
	}
	return points
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
