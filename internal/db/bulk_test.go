package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "signals.accounts",
		Columns:      []string{"domain", "vertical"},
		ConflictKeys: []string{"domain"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_ConfigErrors(t *testing.T) {
	rows := [][]any{{"acme.com", "saas"}}

	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "signals.accounts",
		ConflictKeys: []string{"domain"},
	}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")

	_, err = BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "signals.accounts",
		Columns: []string{"domain", "vertical"},
	}, rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_StagesAndMerges(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_staging_accounts" \(LIKE "accounts" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_accounts"}, []string{"domain", "vertical"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "accounts" \("domain", "vertical"\) SELECT "domain", "vertical" FROM "_staging_accounts" ON CONFLICT \("domain"\) DO UPDATE SET "vertical" = EXCLUDED\."vertical"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "accounts",
		Columns:      []string{"domain", "vertical"},
		ConflictKeys: []string{"domain"},
	}, [][]any{{"acme.com", "saas"}, {"globex.com", "mfg"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_staging_accounts"}, []string{"domain", "vertical"}).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "accounts",
		Columns:      []string{"domain", "vertical"},
		ConflictKeys: []string{"domain"},
	}, [][]any{{"acme.com", "saas"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table")
}

func TestUpdateColumns_DefaultsToNonKeys(t *testing.T) {
	cfg := UpsertConfig{
		Columns:      []string{"domain", "company_name", "vertical"},
		ConflictKeys: []string{"domain"},
	}
	assert.Equal(t, []string{"company_name", "vertical"}, cfg.updateColumns())

	cfg.UpdateCols = []string{"vertical"}
	assert.Equal(t, []string{"vertical"}, cfg.updateColumns())
}

func TestQuoteTable(t *testing.T) {
	assert.Equal(t, `"accounts"`, quoteTable("accounts"))
	assert.Equal(t, `"signals"."accounts"`, quoteTable("signals.accounts"))
}
