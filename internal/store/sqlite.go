package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/signals-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	domain     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'pending',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS accounts (
	domain          TEXT PRIMARY KEY,
	company_name    TEXT,
	vertical        TEXT,
	traffic         TEXT,
	tech_stack      TEXT,
	search_provider TEXT,
	partner_tech    TEXT,
	competitors     TEXT,
	case_studies    TEXT,
	hiring          TEXT,
	scores          TEXT,
	insights        TEXT,
	priority_score  INTEGER,
	status          TEXT,
	observed_at     DATETIME,
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain);
CREATE INDEX IF NOT EXISTS idx_accounts_status ON accounts(status);
CREATE INDEX IF NOT EXISTS idx_accounts_priority ON accounts(priority_score);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, domain string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, domain, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, domain, string(model.RunStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Domain:    domain,
		Status:    model.RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, status model.RunStatus, result *model.RunSummary) error {
	resultJSON, err := jsonPtr(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		resultJSON, string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, domain, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	query += ` ORDER BY created_at DESC`

	// Limit <= 0 means no cap; sqlite needs LIMIT -1 to allow a bare OFFSET.
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) UpsertAccount(ctx context.Context, domain string, fields model.AccountFields, observedAt time.Time) error {
	args, err := accountUpsertArgs(fields)
	if err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(accountColumns)+3), ", ")
	query := fmt.Sprintf(
		`INSERT INTO accounts (domain, %s, observed_at, updated_at) VALUES (%s)
		 ON CONFLICT(domain) DO UPDATE SET %s`,
		strings.Join(accountColumns, ", "), placeholders, accountUpdateSet(),
	)

	now := time.Now().UTC()
	execArgs := append([]any{domain}, args...)
	execArgs = append(execArgs, observedAt.UTC(), now)

	_, err = s.db.ExecContext(ctx, query, execArgs...)
	return eris.Wrapf(err, "sqlite: upsert account %s", domain)
}

func (s *SQLiteStore) GetAccount(ctx context.Context, domain string) (*model.EnrichedAccountRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountSelectList+` FROM accounts WHERE domain = ?`,
		domain,
	)

	rec, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (s *SQLiteStore) ListAccounts(ctx context.Context, filter AccountFilter) ([]model.EnrichedAccountRecord, error) {
	query := `SELECT ` + accountSelectList + ` FROM accounts WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.MinPriority > 0 {
		query += ` AND priority_score >= ?`
		args = append(args, filter.MinPriority)
	}
	query += ` ORDER BY priority_score DESC`

	// Limit <= 0 means no cap; sqlite needs LIMIT -1 to allow a bare OFFSET.
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list accounts")
	}
	defer rows.Close()

	var records []model.EnrichedAccountRecord
	for rows.Next() {
		rec, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list accounts iterate")
}

func (s *SQLiteStore) SeedAccounts(ctx context.Context, seeds []AccountSeed) (int64, error) {
	if len(seeds) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin seed tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var count int64
	for _, seed := range seeds {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (domain, company_name, vertical, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(domain) DO UPDATE SET
			   company_name = COALESCE(excluded.company_name, accounts.company_name),
			   vertical = COALESCE(excluded.vertical, accounts.vertical)`,
			seed.Domain, nullIfEmpty(seed.CompanyName), nullIfEmpty(seed.Vertical), now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: seed account %s", seed.Domain)
		}
		n, _ := res.RowsAffected()
		count += n
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit seed tx")
	}
	return count, nil
}

// helpers

const accountSelectList = `domain, company_name, vertical, traffic, tech_stack, search_provider,
	partner_tech, competitors, case_studies, hiring, scores, insights, observed_at, updated_at`

func accountUpdateSet() string {
	parts := make([]string, 0, len(accountColumns)+2)
	for _, c := range accountColumns {
		parts = append(parts, fmt.Sprintf("%s = COALESCE(excluded.%s, accounts.%s)", c, c, c))
	}
	parts = append(parts, "observed_at = excluded.observed_at", "updated_at = excluded.updated_at")
	return strings.Join(parts, ", ")
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.Domain, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if resultJSON.Valid {
		r.Result, err = unmarshalInto[model.RunSummary]([]byte(resultJSON.String), "run result")
		if err != nil {
			return nil, err
		}
	}
	return &r, nil
}

func scanAccount(row scannable) (*model.EnrichedAccountRecord, error) {
	var rec model.EnrichedAccountRecord
	var companyName, vertical, searchProvider, insights sql.NullString
	var traffic, techStack, partnerTech, competitors, caseStudies, hiring, scores sql.NullString
	var observedAt sql.NullTime
	var updatedAt time.Time

	err := row.Scan(
		&rec.Domain, &companyName, &vertical, &traffic, &techStack, &searchProvider,
		&partnerTech, &competitors, &caseStudies, &hiring, &scores, &insights,
		&observedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.CompanyName = companyName.String
	rec.Vertical = vertical.String
	rec.SearchProvider = searchProvider.String
	rec.Insights = insights.String
	if observedAt.Valid {
		rec.ObservedAt = observedAt.Time
	}

	if rec.Traffic, err = unmarshalInto[model.TrafficStats](nullBytes(traffic), "traffic"); err != nil {
		return nil, err
	}
	if rec.TechStack, err = unmarshalInto[model.TechStackResult](nullBytes(techStack), "tech stack"); err != nil {
		return nil, err
	}
	if rec.Competitors, err = unmarshalInto[model.CompetitorLandscape](nullBytes(competitors), "competitors"); err != nil {
		return nil, err
	}
	if rec.Hiring, err = unmarshalInto[model.HiringSignalResult](nullBytes(hiring), "hiring"); err != nil {
		return nil, err
	}
	if rec.Scores, err = unmarshalInto[model.AccountScores](nullBytes(scores), "scores"); err != nil {
		return nil, err
	}

	pt, err := unmarshalInto[[]string](nullBytes(partnerTech), "partner tech")
	if err != nil {
		return nil, err
	}
	if pt != nil {
		rec.PartnerTech = *pt
	}
	cs, err := unmarshalInto[[]model.CaseStudy](nullBytes(caseStudies), "case studies")
	if err != nil {
		return nil, err
	}
	if cs != nil {
		rec.CaseStudies = *cs
	}

	return &rec, nil
}

func nullBytes(ns sql.NullString) []byte {
	if !ns.Valid {
		return nil
	}
	return []byte(ns.String)
}
