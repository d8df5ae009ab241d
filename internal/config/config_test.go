package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp switches to an empty directory so Load does not pick up a real
// config.yaml from the repo root.
func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentDomains)
	assert.Equal(t, 8, cfg.Enrich.CompetitorCap)
	assert.Equal(t, 72, cfg.Enrich.FreshTTLHours)
	assert.Equal(t, 1.0, cfg.TechDetect.RPS)
	assert.Equal(t, 5, cfg.TechDetect.Burst)
	assert.Equal(t, 40, cfg.Scorer.VerticalCap)
	assert.NotEmpty(t, cfg.Scorer.PrimaryVerticals)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SIGNALS_LOG_LEVEL", "debug")
	t.Setenv("SIGNALS_TECHDETECT_KEY", "td-key-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "td-key-123", cfg.TechDetect.Key)
}

func TestLoad_ConfigFile(t *testing.T) {
	chdirTemp(t)

	dir, err := os.Getwd()
	require.NoError(t, err)
	content := []byte("store:\n  driver: postgres\n  database_url: postgres://localhost/signals\nlog:\n  level: warn\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/signals", cfg.Store.DatabaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
	// Defaults still apply for untouched sections.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
