// Package rules holds the versioned classification tables used by the
// classifiers and scorers. Tables are loaded once and passed explicitly into
// component constructors; nothing in this package is consulted ambiently.
package rules

import (
	_ "embed"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embedded []byte

// CategoryRule assigns technologies to a bucket when the provider's category
// hint contains any of the listed substrings.
type CategoryRule struct {
	Bucket   string   `yaml:"bucket"`
	Contains []string `yaml:"contains"`
}

// JobCategory names a hiring category and its title keywords.
type JobCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// StatusThresholds are the canonical lower bounds for the priority-score
// status buckets. Anything below Cool is cold.
type StatusThresholds struct {
	Hot  int `yaml:"hot"`
	Warm int `yaml:"warm"`
	Cool int `yaml:"cool"`
}

// Ruleset is the full classification table set.
type Ruleset struct {
	Version              string           `yaml:"version"`
	Categories           []CategoryRule   `yaml:"categories"`
	ReferenceProduct     string           `yaml:"reference_product"`
	SearchProviders      []string         `yaml:"search_providers"`
	Partners             []string         `yaml:"partners"`
	KnownCustomerDomains []string         `yaml:"known_customer_domains"`
	Tier1Patterns        []string         `yaml:"tier1_patterns"`
	Tier2Patterns        []string         `yaml:"tier2_patterns"`
	JobCategories        []JobCategory    `yaml:"job_categories"`
	StatusThresholds     StatusThresholds `yaml:"status_thresholds"`

	tier1 []*regexp.Regexp
	tier2 []*regexp.Regexp
}

// Parse decodes a ruleset from YAML and compiles its tier patterns.
func Parse(data []byte) (*Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, eris.Wrap(err, "rules: unmarshal")
	}
	if err := rs.validate(); err != nil {
		return nil, err
	}
	if err := rs.compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// LoadFile reads a ruleset from disk, for operator overrides of the
// embedded tables.
func LoadFile(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}
	return Parse(data)
}

var (
	defaultOnce sync.Once
	defaultSet  *Ruleset
	defaultErr  error
)

// Default returns the embedded ruleset, parsed once.
func Default() (*Ruleset, error) {
	defaultOnce.Do(func() {
		defaultSet, defaultErr = Parse(embedded)
	})
	return defaultSet, defaultErr
}

func (rs *Ruleset) validate() error {
	if len(rs.Categories) == 0 {
		return eris.New("rules: no category rules")
	}
	if len(rs.SearchProviders) == 0 {
		return eris.New("rules: no search providers")
	}
	if rs.ReferenceProduct == "" {
		return eris.New("rules: reference_product is required")
	}
	if rs.SearchProviders[0] != rs.ReferenceProduct {
		return eris.Errorf("rules: reference product %q must be first in search provider priority order", rs.ReferenceProduct)
	}
	if len(rs.JobCategories) == 0 {
		return eris.New("rules: no job categories")
	}
	t := rs.StatusThresholds
	if !(t.Hot > t.Warm && t.Warm > t.Cool && t.Cool > 0) {
		return eris.Errorf("rules: status thresholds must descend hot > warm > cool > 0, got %d/%d/%d", t.Hot, t.Warm, t.Cool)
	}
	return nil
}

func (rs *Ruleset) compile() error {
	var err error
	if rs.tier1, err = compilePatterns(rs.Tier1Patterns); err != nil {
		return eris.Wrap(err, "rules: tier1 patterns")
	}
	if rs.tier2, err = compilePatterns(rs.Tier2Patterns); err != nil {
		return eris.Wrap(err, "rules: tier2 patterns")
	}
	return nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "compile %q", p)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Tier1Regexps returns the compiled tier-1 patterns in evaluation order.
func (rs *Ruleset) Tier1Regexps() []*regexp.Regexp { return rs.tier1 }

// Tier2Regexps returns the compiled tier-2 patterns in evaluation order.
func (rs *Ruleset) Tier2Regexps() []*regexp.Regexp { return rs.tier2 }

// IsKnownCustomer reports whether domain appears on the curated customer
// list. Comparison ignores case and a leading "www." prefix.
func (rs *Ruleset) IsKnownCustomer(domain string) bool {
	normalized := strings.TrimPrefix(strings.ToLower(domain), "www.")
	for _, d := range rs.KnownCustomerDomains {
		if strings.TrimPrefix(strings.ToLower(d), "www.") == normalized {
			return true
		}
	}
	return false
}
