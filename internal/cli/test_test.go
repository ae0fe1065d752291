package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata"

const failingScenario = `name: wrong_count
description: "Expects an addition that never happens"
records:
  - eventID: "1"
    eventName: REMOVE
    eventSourceARN: "arn:aws:dynamodb:eu-west-1:123456789012:table/entities/stream/2024-01-01T00:00:00.000"
    dynamodb:
      StreamViewType: NEW_AND_OLD_IMAGES
      Keys: { H: { S: a }, R: { S: "1" } }
      OldImage: { H: { S: a }, R: { S: "1" }, name: { S: Alice } }
expect:
  stats:
    additions: 1
`

func runTestCmd(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

// copyScenarios copies the harness scenarios (without golden files) into
// a fresh directory.
func copyScenarios(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	matches, err := filepath.Glob(filepath.Join(harnessScenarios, "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	for _, src := range matches {
		data, err := os.ReadFile(src)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.Base(src)), data, 0644))
	}
	return dir
}

func TestTestCommandPassesHarnessScenarios(t *testing.T) {
	out, err := runTestCmd(t, "text", harnessScenarios)
	require.NoError(t, err, out.String())

	text := out.String()
	assert.Contains(t, text, "✓ insert_then_modify")
	assert.Contains(t, text, "✓ churn_and_updates")
	assert.Contains(t, text, "✓ rejected_and_excluded")
	assert.Contains(t, text, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, text, "✓ All scenarios passed")
}

func TestTestCommandJSON(t *testing.T) {
	out, err := runTestCmd(t, "json", harnessScenarios)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 3, resp.Data.Passed)
	assert.Zero(t, resp.Data.Failed)
}

func TestTestCommandFilter(t *testing.T) {
	out, err := runTestCmd(t, "text", harnessScenarios, "--filter", "churn_*")
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "✓ churn_and_updates")
	assert.NotContains(t, text, "insert_then_modify")
	assert.Contains(t, text, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandUpdateWritesGoldenFiles(t *testing.T) {
	dir := copyScenarios(t)

	out, err := runTestCmd(t, "text", dir, "--update")
	require.NoError(t, err, out.String())
	assert.Contains(t, out.String(), "✓ insert_then_modify (golden updated)")

	got, err := os.ReadFile(filepath.Join(dir, "golden", "insert_then_modify.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(harnessScenarios, "golden", "insert_then_modify.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	// A second run compares against the files just written.
	out, err = runTestCmd(t, "text", dir)
	require.NoError(t, err, out.String())
	assert.Contains(t, out.String(), "Test Summary: 3 passed, 0 failed, 3 total")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := copyScenarios(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, writeFile(filepath.Join(dir, "golden", "churn_and_updates.golden"), "{}"))

	out, err := runTestCmd(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.String(), "✗ churn_and_updates")
	assert.Contains(t, out.String(), "output does not match golden file")
	assert.Contains(t, out.String(), "diff: ")
	assert.Contains(t, out.String(), "Test Summary: 2 passed, 1 failed, 3 total")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "wrong_count.yaml"), failingScenario))

	out, err := runTestCmd(t, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.Contains(t, resp.Data.Scenarios[0].Errors, "stats.additions: expected 1, got 0")
}

func TestTestCommandInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "broken.yaml"), "name: broken\n"))

	out, err := runTestCmd(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out.String(), "✗ broken.yaml")
	assert.Contains(t, out.String(), "failed to load scenario")
}

func TestTestCommandEmptyAndMissingDir(t *testing.T) {
	out, err := runTestCmd(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out.String())

	_, err = runTestCmd(t, "text", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenDiff(t *testing.T) {
	assert.Equal(t, `{"a":[-1-]{+2+}}`, goldenDiff(`{"a":1}`, `{"a":2}`))

	long := strings.Repeat("x", 100)
	diff := goldenDiff(long+"a", long+"b")
	assert.Equal(t, strings.Repeat("x", diffContext)+"..."+strings.Repeat("x", diffContext)+"[-a-]{+b+}", diff)
}
