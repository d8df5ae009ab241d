// Package casestudy matches an industry vertical to curated reference case
// studies. The catalog is static, embedded at build time, and read-only; no
// external call is made.
package casestudy

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/signals-cli/internal/model"
)

//go:embed case_studies.yaml
var embedded []byte

// Matcher looks up case studies by vertical.
type Matcher struct {
	studies []model.CaseStudy
	folder  cases.Caser
}

// NewMatcher builds a Matcher from the embedded catalog.
func NewMatcher() (*Matcher, error) {
	return NewMatcherFromYAML(embedded)
}

// NewMatcherFromYAML builds a Matcher from a YAML catalog, for overrides and
// tests.
func NewMatcherFromYAML(data []byte) (*Matcher, error) {
	var studies []model.CaseStudy
	if err := yaml.Unmarshal(data, &studies); err != nil {
		return nil, eris.Wrap(err, "casestudy: unmarshal catalog")
	}
	if len(studies) == 0 {
		return nil, eris.New("casestudy: empty catalog")
	}
	return &Matcher{studies: studies, folder: cases.Fold()}, nil
}

// Match returns the case studies for a vertical: exact case-folded matches
// first, then substring matches in either direction. An unknown or empty
// vertical returns nil.
func (m *Matcher) Match(vertical string) []model.CaseStudy {
	needle := m.folder.String(strings.TrimSpace(vertical))
	if needle == "" {
		return nil
	}

	var exact, fuzzy []model.CaseStudy
	for _, cs := range m.studies {
		have := m.folder.String(cs.Vertical)
		switch {
		case have == needle:
			exact = append(exact, cs)
		case strings.Contains(have, needle) || strings.Contains(needle, have):
			fuzzy = append(fuzzy, cs)
		}
	}
	return append(exact, fuzzy...)
}

// Catalog returns the full curated list.
func (m *Matcher) Catalog() []model.CaseStudy {
	return m.studies
}
