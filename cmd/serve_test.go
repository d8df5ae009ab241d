package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signals-cli/internal/config"
	"github.com/sells-group/signals-cli/internal/model"
	"github.com/sells-group/signals-cli/internal/store"
)

func testServeEnv(t *testing.T) *env {
	t.Helper()

	cfg = &config.Config{
		Server: config.ServerConfig{Port: 8080},
	}

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	return &env{Store: st}
}

func TestServe_Health(t *testing.T) {
	router := newRouter(testServeEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestServe_EnrichRejectsBadBody(t *testing.T) {
	router := newRouter(testServeEnv(t))

	req := httptest.NewRequest(http.MethodPost, "/api/enrich", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServe_EnrichRequiresDomain(t *testing.T) {
	router := newRouter(testServeEnv(t))

	req := httptest.NewRequest(http.MethodPost, "/api/enrich", strings.NewReader(`{"company_name":"Acme"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "domain is required")
}

func TestServe_AccountNotFound(t *testing.T) {
	router := newRouter(testServeEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/missing.com", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_AccountFound(t *testing.T) {
	serveEnv := testServeEnv(t)
	router := newRouter(serveEnv)

	name := "Acme"
	err := serveEnv.Store.UpsertAccount(context.Background(), "acme.com",
		model.AccountFields{CompanyName: &name}, testObservedAt)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/accounts/ACME.com", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"acme.com"`)
	assert.Contains(t, rec.Body.String(), `"Acme"`)
}

func TestServe_RunNotFound(t *testing.T) {
	router := newRouter(testServeEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_ListAccountsEmpty(t *testing.T) {
	router := newRouter(testServeEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
