package enrich

import (
	"fmt"
	"strings"

	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/pkg/anthropic"
)

// insightsSystemPrompt frames the model as a sales researcher. It is shared
// by single-message and batch insight generation so batch runs can cache it.
const insightsSystemPrompt = `You are a B2B sales researcher summarizing account signals for an outbound team selling search and discovery infrastructure.

Given the structured signals for one company, write a short briefing (3-5 sentences) covering:
- what the company does and how large its web presence is
- which search provider it uses today, if known, and whether competitors in its space use our reference product
- the strongest buying signals (hiring activity, technology spend, partner technologies)
- a suggested opening angle for outreach

Be specific and factual. Never invent data that is not in the signals. Plain prose only, no headers or bullet lists.`

// InsightsSystemBlocks returns the shared system prompt as cacheable blocks
// for batch insight generation.
func InsightsSystemBlocks() []anthropic.SystemBlock {
	return anthropic.BuildCachedSystemBlocks(insightsSystemPrompt)
}

// InsightsRequest builds the CreateMessage request for one account record.
func InsightsRequest(cfg config.AnthropicConfig, rec *model.EnrichedAccountRecord) anthropic.MessageRequest {
	return anthropic.MessageRequest{
		Model:     cfg.Model,
		MaxTokens: int64(cfg.MaxTokens),
		System:    []anthropic.SystemBlock{{Text: insightsSystemPrompt}},
		Messages: []anthropic.Message{
			{Role: "user", Content: BuildInsightsPrompt(rec)},
		},
	}
}

// BuildInsightsPrompt renders the gathered signals for one account as the
// user message. Sections that were never fetched are omitted entirely.
func BuildInsightsPrompt(rec *model.EnrichedAccountRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Company: %s\n", displayName(rec))
	fmt.Fprintf(&b, "Domain: %s\n", rec.Domain)
	if rec.Vertical != "" {
		fmt.Fprintf(&b, "Vertical: %s\n", rec.Vertical)
	}

	if t := rec.Traffic; t != nil {
		fmt.Fprintf(&b, "\nTraffic: %d monthly visits", t.MonthlyVisits)
		if t.GlobalRank > 0 {
			fmt.Fprintf(&b, ", global rank %d", t.GlobalRank)
		}
		b.WriteString("\n")
	}

	if s := rec.TechStack; s != nil {
		fmt.Fprintf(&b, "\nTechnology stack (%d detected):\n", len(s.Raw))
		for name, techs := range s.Buckets() {
			if len(techs) > 0 {
				fmt.Fprintf(&b, "  %s: %s\n", name, strings.Join(techs, ", "))
			}
		}
		if s.MonthlySpendUSD > 0 {
			fmt.Fprintf(&b, "  estimated monthly tech spend: $%d\n", s.MonthlySpendUSD)
		}
	}
	if rec.SearchProvider != "" {
		fmt.Fprintf(&b, "Current search provider: %s\n", rec.SearchProvider)
	}
	if len(rec.PartnerTech) > 0 {
		fmt.Fprintf(&b, "Partner technologies: %s\n", strings.Join(rec.PartnerTech, ", "))
	}

	if c := rec.Competitors; c != nil && c.Analyzed > 0 {
		fmt.Fprintf(&b, "\nCompetitor landscape: %d analyzed, %d using our reference product, %d with a known search provider\n",
			c.Analyzed, c.UsingReferenceProduct, c.WithSearchProvider)
		for _, comp := range c.Competitors {
			line := fmt.Sprintf("  %s (similarity %.2f)", comp.Domain, comp.SimilarityScore)
			if comp.UsesReferenceProduct {
				line += ", uses our reference product"
			} else if comp.SearchProvider != "" {
				line += ", uses " + comp.SearchProvider
			}
			b.WriteString(line + "\n")
		}
	}

	if h := rec.Hiring; h != nil && h.RelevantJobs > 0 {
		fmt.Fprintf(&b, "\nHiring: %d relevant postings of %d total, signal score %d (%s)\n",
			h.RelevantJobs, h.TotalJobsFound, h.Score, h.Strength)
		for _, job := range h.TopJobs {
			fmt.Fprintf(&b, "  tier %d: %s\n", job.Tier, job.Title)
		}
	}

	if len(rec.CaseStudies) > 0 {
		b.WriteString("\nMatching case studies to reference:\n")
		for _, cs := range rec.CaseStudies {
			fmt.Fprintf(&b, "  %s (%s)\n", cs.Title, cs.Company)
		}
	}

	if sc := rec.Scores; sc != nil {
		fmt.Fprintf(&b, "\nScores: ICP %d/100, hiring signal %d/100, priority %d (%s)\n",
			sc.ICP.Total, sc.Signal, sc.Priority, sc.Status)
	}

	return b.String()
}

func displayName(rec *model.EnrichedAccountRecord) string {
	if rec.CompanyName != "" {
		return rec.CompanyName
	}
	return companyFromDomain(rec.Domain)
}

// responseText concatenates the text blocks of a message response.
func responseText(blocks []anthropic.ContentBlock) string {
	var b strings.Builder
	for _, block := range blocks {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
