package enrich

import (
	"encoding/json"
	"errors"

	"github.com/sells-group/signals-cli/internal/model"
)

// classifyFailure maps a step error onto the failure taxonomy. HTTP status
// codes from the adapters take precedence; malformed payloads map to
// schema_mismatch; the persist step always maps to persistence. Anything
// else is treated as a network failure.
func classifyFailure(step model.Step, err error) *model.StepFailure {
	kind := classifyKind(step, err)
	return &model.StepFailure{
		Step:    step,
		Kind:    kind,
		Message: err.Error(),
		Advice:  model.AdviceFor(kind),
	}
}

func classifyKind(step model.Step, err error) model.FailureKind {
	if step == model.StepPersist {
		return model.FailurePersistence
	}

	var se interface{ HTTPStatus() int }
	if errors.As(err, &se) {
		switch code := se.HTTPStatus(); {
		case code == 429:
			return model.FailureRateLimited
		case code == 401 || code == 403:
			return model.FailureAuth
		default:
			return model.FailureNetwork
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return model.FailureSchemaMismatch
	}

	return model.FailureNetwork
}
