package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/db"
	"github.com/sells-group/signals-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO runs (id, domain, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"update_run_status": `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
	"update_run_result": `UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
	"get_run":           `SELECT id, domain, status, result, created_at, updated_at FROM runs WHERE id = $1`,
	"get_account":       `SELECT ` + accountSelectList + ` FROM accounts WHERE domain = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool creates a PostgresStore on an existing pool. Used by
// tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access, such as bulk seeding.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	domain     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS accounts (
	domain          TEXT PRIMARY KEY,
	company_name    TEXT,
	vertical        TEXT,
	traffic         JSONB,
	tech_stack      JSONB,
	search_provider TEXT,
	partner_tech    JSONB,
	competitors     JSONB,
	case_studies    JSONB,
	hiring          JSONB,
	scores          JSONB,
	insights        TEXT,
	priority_score  INTEGER,
	status          TEXT,
	observed_at     TIMESTAMPTZ,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain);
CREATE INDEX IF NOT EXISTS idx_accounts_status ON accounts(status);
CREATE INDEX IF NOT EXISTS idx_accounts_priority ON accounts(priority_score DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, domain string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, domain, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, domain, string(model.RunStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Domain:    domain,
		Status:    model.RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunSummary) error {
	resultJSON, err := jsonPtr(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var resultJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, domain, status, result, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Domain, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if r.Result, err = unmarshalInto[model.RunSummary](resultJSON, "run result"); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, domain, status, result, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Domain != "" {
		query += fmt.Sprintf(` AND domain = $%d`, argIdx)
		args = append(args, filter.Domain)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	// Limit <= 0 means no cap.
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var resultJSON []byte

		if err := rows.Scan(&r.ID, &r.Domain, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if r.Result, err = unmarshalInto[model.RunSummary](resultJSON, "run result"); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) UpsertAccount(ctx context.Context, domain string, fields model.AccountFields, observedAt time.Time) error {
	args, err := accountUpsertArgs(fields)
	if err != nil {
		return err
	}

	placeholders := make([]string, len(accountColumns)+3)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		`INSERT INTO accounts (domain, %s, observed_at, updated_at) VALUES (%s)
		 ON CONFLICT (domain) DO UPDATE SET %s`,
		strings.Join(accountColumns, ", "), strings.Join(placeholders, ", "), accountUpdateSet(),
	)

	now := time.Now().UTC()
	execArgs := append([]any{domain}, args...)
	execArgs = append(execArgs, observedAt.UTC(), now)

	_, err = s.pool.Exec(ctx, query, execArgs...)
	return eris.Wrapf(err, "postgres: upsert account %s", domain)
}

func (s *PostgresStore) GetAccount(ctx context.Context, domain string) (*model.EnrichedAccountRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accountSelectList+` FROM accounts WHERE domain = $1`,
		domain,
	)

	rec, err := scanAccountPgx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get account %s", domain)
	}
	return rec, nil
}

func (s *PostgresStore) ListAccounts(ctx context.Context, filter AccountFilter) ([]model.EnrichedAccountRecord, error) {
	query := `SELECT ` + accountSelectList + ` FROM accounts WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.MinPriority > 0 {
		query += fmt.Sprintf(` AND priority_score >= $%d`, argIdx)
		args = append(args, filter.MinPriority)
		argIdx++
	}
	query += ` ORDER BY priority_score DESC NULLS LAST`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list accounts")
	}
	defer rows.Close()

	var records []model.EnrichedAccountRecord
	for rows.Next() {
		rec, err := scanAccountPgx(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan account")
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list accounts iterate")
}

func (s *PostgresStore) SeedAccounts(ctx context.Context, seeds []AccountSeed) (int64, error) {
	if len(seeds) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(seeds))
	now := time.Now().UTC()
	for i, seed := range seeds {
		rows[i] = []any{seed.Domain, nullIfEmpty(seed.CompanyName), nullIfEmpty(seed.Vertical), now}
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "accounts",
		Columns:      []string{"domain", "company_name", "vertical", "updated_at"},
		ConflictKeys: []string{"domain"},
		UpdateCols:   []string{"company_name", "vertical"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: seed accounts")
	}
	return n, nil
}

func scanAccountPgx(row pgx.Row) (*model.EnrichedAccountRecord, error) {
	var rec model.EnrichedAccountRecord
	var companyName, vertical, searchProvider, insights *string
	var traffic, techStack, partnerTech, competitors, caseStudies, hiring, scores []byte
	var observedAt *time.Time
	var updatedAt time.Time

	err := row.Scan(
		&rec.Domain, &companyName, &vertical, &traffic, &techStack, &searchProvider,
		&partnerTech, &competitors, &caseStudies, &hiring, &scores, &insights,
		&observedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if companyName != nil {
		rec.CompanyName = *companyName
	}
	if vertical != nil {
		rec.Vertical = *vertical
	}
	if searchProvider != nil {
		rec.SearchProvider = *searchProvider
	}
	if insights != nil {
		rec.Insights = *insights
	}
	if observedAt != nil {
		rec.ObservedAt = *observedAt
	}

	if rec.Traffic, err = unmarshalInto[model.TrafficStats](traffic, "traffic"); err != nil {
		return nil, err
	}
	if rec.TechStack, err = unmarshalInto[model.TechStackResult](techStack, "tech stack"); err != nil {
		return nil, err
	}
	if rec.Competitors, err = unmarshalInto[model.CompetitorLandscape](competitors, "competitors"); err != nil {
		return nil, err
	}
	if rec.Hiring, err = unmarshalInto[model.HiringSignalResult](hiring, "hiring"); err != nil {
		return nil, err
	}
	if rec.Scores, err = unmarshalInto[model.AccountScores](scores, "scores"); err != nil {
		return nil, err
	}

	pt, err := unmarshalInto[[]string](partnerTech, "partner tech")
	if err != nil {
		return nil, err
	}
	if pt != nil {
		rec.PartnerTech = *pt
	}
	cs, err := unmarshalInto[[]model.CaseStudy](caseStudies, "case studies")
	if err != nil {
		return nil, err
	}
	if cs != nil {
		rec.CaseStudies = *cs
	}

	return &rec, nil
}
