package model

import "fmt"

// FailureKind classifies why a pipeline step failed.
type FailureKind string

const (
	FailureNetwork        FailureKind = "network"
	FailureRateLimited    FailureKind = "rate_limited"
	FailureAuth           FailureKind = "auth"
	FailureSchemaMismatch FailureKind = "schema_mismatch"
	FailurePersistence    FailureKind = "persistence"
)

// StepFailure is the structured failure value attached to a step result.
// It carries enough context for a caller to render differentiated guidance
// without inspecting internals.
type StepFailure struct {
	Step    Step        `json:"step"`
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Advice  string      `json:"advice,omitempty"`
}

func (f *StepFailure) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Step, f.Kind, f.Message)
}

// Fatal reports whether this failure halts the whole run. Only persistence
// failures are fatal; every other kind degrades the run to partial success.
func (f *StepFailure) Fatal() bool {
	return f.Kind == FailurePersistence
}

// AdviceFor returns the default suggested next action for a failure kind.
func AdviceFor(kind FailureKind) string {
	switch kind {
	case FailureNetwork:
		return "check connectivity to the provider and re-run the failed module"
	case FailureRateLimited:
		return "lower the adapter rate limit in config or retry after the provider window resets"
	case FailureAuth:
		return "verify the provider API key in config"
	case FailureSchemaMismatch:
		return "the provider payload changed shape; update the adapter before re-running"
	case FailurePersistence:
		return "check the store connection; no partial record was written"
	default:
		return ""
	}
}
