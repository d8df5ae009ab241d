package model

import "time"

// RunStatus represents the current state of an enrichment run.
type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusFetching RunStatus = "fetching"
	RunStatusUpdating RunStatus = "updating"
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial"
	RunStatusError    RunStatus = "error"
)

// Run represents a single enrichment run for a domain.
type Run struct {
	ID        string      `json:"id"`
	Domain    string      `json:"domain"`
	Status    RunStatus   `json:"status"`
	Result    *RunSummary `json:"result,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StepStatus represents the state of one pipeline step.
type StepStatus string

const (
	StepStatusRunning  StepStatus = "running"
	StepStatusComplete StepStatus = "complete"
	StepStatusFailed   StepStatus = "failed"
	StepStatusSkipped  StepStatus = "skipped"
)

// StepResult holds the outcome of one pipeline step.
type StepResult struct {
	Step     Step           `json:"step"`
	Status   StepStatus     `json:"status"`
	Duration int64          `json:"duration_ms"`
	Failure  *StepFailure   `json:"failure,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RunSummary is the caller-facing outcome of a run. For partial successes it
// lists which sources completed and which failed, and why.
type RunSummary struct {
	Domain        string        `json:"domain"`
	Steps         []StepResult  `json:"steps"`
	Completed     []Step        `json:"completed"`
	Failed        []StepFailure `json:"failed,omitempty"`
	Partial       bool          `json:"partial"`
	Cancelled     bool          `json:"cancelled,omitempty"`
	PriorityScore int           `json:"priority_score,omitempty"`
	Status        string        `json:"status,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// ProgressEvent is emitted by the orchestrator at every step transition.
// Steps that walk a candidate list also set Candidate and the Current/Total
// counters so a caller can render incremental progress without polling.
type ProgressEvent struct {
	Domain    string    `json:"domain"`
	Status    RunStatus `json:"status"`
	Step      Step      `json:"step,omitempty"`
	Message   string    `json:"message"`
	Candidate string    `json:"candidate,omitempty"`
	Current   int       `json:"current,omitempty"`
	Total     int       `json:"total,omitempty"`
}

// ProgressSink receives progress events. It is the orchestrator's only
// channel to any UI; implementations must be fast and non-blocking.
type ProgressSink func(ProgressEvent)
