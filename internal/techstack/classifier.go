// Package techstack categorizes detected technologies into semantic buckets
// and detects search providers and partner products. All functions are pure;
// identical input always yields identical output.
package techstack

import (
	"strings"

	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/rules"
)

// Classifier applies a fixed ruleset to flat technology lists.
type Classifier struct {
	rules *rules.Ruleset
}

// NewClassifier creates a Classifier bound to the given ruleset.
func NewClassifier(rs *rules.Ruleset) *Classifier {
	return &Classifier{rules: rs}
}

// Categorize assigns each technology to every bucket whose rule matches its
// provider category hint. Technologies with no matching rule appear only in
// the raw list.
func (c *Classifier) Categorize(techs []model.Technology) *model.TechStackResult {
	result := &model.TechStackResult{}

	for _, tech := range techs {
		result.Raw = append(result.Raw, tech.Name)
		hint := strings.ToLower(tech.Category)
		if hint == "" {
			continue
		}
		for _, rule := range c.rules.Categories {
			if !containsAny(hint, rule.Contains) {
				continue
			}
			switch rule.Bucket {
			case "cms":
				result.CMS = append(result.CMS, tech.Name)
			case "ecommerce":
				result.Ecommerce = append(result.Ecommerce, tech.Name)
			case "analytics":
				result.Analytics = append(result.Analytics, tech.Name)
			case "search":
				result.Search = append(result.Search, tech.Name)
			case "cdn":
				result.CDN = append(result.CDN, tech.Name)
			case "payment":
				result.Payment = append(result.Payment, tech.Name)
			case "marketing":
				result.Marketing = append(result.Marketing, tech.Name)
			case "frameworks":
				result.Frameworks = append(result.Frameworks, tech.Name)
			}
		}
	}

	return result
}

// DetectSearchProvider returns the highest-priority known search provider
// found in the search bucket. Bucket names are scanned in their original
// order and the provider priority list breaks ties; the first provider that
// substring-matches any bucket name wins.
func (c *Classifier) DetectSearchProvider(stack *model.TechStackResult) string {
	if stack == nil {
		return ""
	}
	for _, provider := range c.rules.SearchProviders {
		lp := strings.ToLower(provider)
		for _, name := range stack.Search {
			if strings.Contains(strings.ToLower(name), lp) {
				return provider
			}
		}
	}
	return ""
}

// UsesReferenceProduct reports whether the detected search provider is the
// reference product itself.
func (c *Classifier) UsesReferenceProduct(stack *model.TechStackResult) bool {
	return c.DetectSearchProvider(stack) == c.rules.ReferenceProduct
}

// DetectPartnerTech scans the raw list and every category bucket for the
// partner allowlist. The result is deduplicated and ordered by the allowlist.
func (c *Classifier) DetectPartnerTech(stack *model.TechStackResult) []string {
	if stack == nil {
		return nil
	}

	haystacks := make([]string, 0, len(stack.Raw))
	haystacks = append(haystacks, stack.Raw...)
	for _, bucket := range stack.Buckets() {
		haystacks = append(haystacks, bucket...)
	}

	var matched []string
	for _, partner := range c.rules.Partners {
		lp := strings.ToLower(partner)
		for _, name := range haystacks {
			if strings.Contains(strings.ToLower(name), lp) {
				matched = append(matched, partner)
				break
			}
		}
	}
	return matched
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
