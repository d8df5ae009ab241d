package store

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/model"
)

// accountColumns lists the updatable account columns in the order produced by
// accountUpsertArgs. Both backends build their upsert statements from it.
var accountColumns = []string{
	"company_name",
	"vertical",
	"traffic",
	"tech_stack",
	"search_provider",
	"partner_tech",
	"competitors",
	"case_studies",
	"hiring",
	"scores",
	"insights",
	"priority_score",
	"status",
}

// accountUpsertArgs converts a partial update into positional args matching
// accountColumns. Nil fields become NULL so COALESCE keeps the stored value.
func accountUpsertArgs(fields model.AccountFields) ([]any, error) {
	traffic, err := jsonPtr(fields.Traffic)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal traffic")
	}
	techStack, err := jsonPtr(fields.TechStack)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal tech stack")
	}
	partnerTech, err := jsonSlice(fields.PartnerTech)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal partner tech")
	}
	competitors, err := jsonPtr(fields.Competitors)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal competitors")
	}
	caseStudies, err := jsonSlice(fields.CaseStudies)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal case studies")
	}
	hiring, err := jsonPtr(fields.Hiring)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal hiring")
	}
	scores, err := jsonPtr(fields.Scores)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal scores")
	}

	var priority, status any
	if fields.Scores != nil {
		priority = fields.Scores.Priority
		status = fields.Scores.Status
	}

	return []any{
		strPtr(fields.CompanyName),
		strPtr(fields.Vertical),
		traffic,
		techStack,
		strPtr(fields.SearchProvider),
		partnerTech,
		competitors,
		caseStudies,
		hiring,
		scores,
		strPtr(fields.Insights),
		priority,
		status,
	}, nil
}

func strPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func jsonPtr[T any](v *T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonSlice[T any](v []T) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalInto[T any](data []byte, label string) (*T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, eris.Wrapf(err, "store: unmarshal %s", label)
	}
	return &v, nil
}
