package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/causelog/internal/store"
)

const seedScenarioYAML = `name: checkout
description: One order with a payment.
events:
  - alias: placed
    command: order.placed
    payload:
      sku: A-100
  - alias: captured
    command: payment.captured
    caused_by: placed
`

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSeedMissingFileFlag(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSeedCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", testDBPath(t)})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestSeedCommandAppendsScenario(t *testing.T) {
	dbPath := testDBPath(t)
	scenarioPath := writeScenarioFile(t, seedScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSeedCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--file", scenarioPath})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Seeded scenario: checkout (2 events)")
	assert.Contains(t, output, "[1] placed: order.placed")
	assert.Contains(t, output, "[2] captured: payment.captured")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	count, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSeedRejectsBadScenario(t *testing.T) {
	scenarioPath := writeScenarioFile(t, "name: broken\nevents: []\n")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSeedCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", testDBPath(t), "--file", scenarioPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load scenario")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSeedJSON(t *testing.T) {
	dbPath := testDBPath(t)
	scenarioPath := writeScenarioFile(t, seedScenarioYAML)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewSeedCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--file", scenarioPath})

	require.NoError(t, cmd.Execute())

	var response struct {
		Status string      `json:"status"`
		Data   SeedSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "checkout", response.Data.Scenario)
	require.Len(t, response.Data.Steps, 2)
	assert.Equal(t, "placed", response.Data.Steps[0].Alias)
	assert.Equal(t, int64(2), response.Data.Steps[1].EventID)
	assert.Equal(t, response.Data.Steps[0].CorrelationID, response.Data.Steps[1].CorrelationID)
}
