// Package store persists enrichment runs and account records. Two backends
// are supported: SQLite for local single-user work and Postgres for shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Domain string          `json:"domain,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// AccountFilter specifies criteria for listing enriched accounts.
type AccountFilter struct {
	Status      string `json:"status,omitempty"`
	MinPriority int    `json:"min_priority,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// AccountSeed is a minimal account row created ahead of enrichment so batch
// jobs can track which domains are queued.
type AccountSeed struct {
	Domain      string `json:"domain"`
	CompanyName string `json:"company_name,omitempty"`
	Vertical    string `json:"vertical,omitempty"`
}

// Store defines the persistence interface for the enrichment pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, domain string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Accounts. UpsertAccount applies only the non-nil fields; existing
	// column values survive partial updates. GetAccount returns (nil, nil)
	// when the domain has never been enriched.
	UpsertAccount(ctx context.Context, domain string, fields model.AccountFields, observedAt time.Time) error
	GetAccount(ctx context.Context, domain string) (*model.EnrichedAccountRecord, error)
	ListAccounts(ctx context.Context, filter AccountFilter) ([]model.EnrichedAccountRecord, error)
	SeedAccounts(ctx context.Context, seeds []AccountSeed) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
