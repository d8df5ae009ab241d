package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signals-cli/internal/model"
)

var testObservedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestLeadsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.txt")
	content := `# priority leads
acme.com, Acme Corp, ecommerce
beta.io

gamma.dev, Gamma
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	leads, err := leadsFromFile(path)
	require.NoError(t, err)
	require.Len(t, leads, 3)

	assert.Equal(t, "acme.com", leads[0].Domain)
	assert.Equal(t, "Acme Corp", leads[0].Name)
	assert.Equal(t, "ecommerce", leads[0].Vertical)

	assert.Equal(t, "beta.io", leads[1].Domain)
	assert.Empty(t, leads[1].Name)

	assert.Equal(t, "gamma.dev", leads[2].Domain)
	assert.Equal(t, "Gamma", leads[2].Name)
	assert.Empty(t, leads[2].Vertical)
}

func TestLeadsFromFile_Missing(t *testing.T) {
	_, err := leadsFromFile(filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}

func TestStepsExcept(t *testing.T) {
	steps := stepsExcept(model.StepInsights)
	assert.Len(t, steps, len(model.AllSteps())-1)
	assert.NotContains(t, steps, model.StepInsights)
	assert.Contains(t, steps, model.StepPersist)
}

func TestParseModules(t *testing.T) {
	steps, err := parseModules([]string{"traffic", "persist"})
	require.NoError(t, err)
	assert.Equal(t, []model.Step{model.StepTraffic, model.StepPersist}, steps)

	steps, err = parseModules(nil)
	require.NoError(t, err)
	assert.Nil(t, steps)

	_, err = parseModules([]string{"traffic", "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}
