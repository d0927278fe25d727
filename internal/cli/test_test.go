package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../../testdata/scenarios"

// rulesScenario answers !rules; the assertion passes when want is
// "Be nice".
func rulesScenario(t *testing.T, want string) string {
	t.Helper()
	catalog, err := filepath.Abs(catalogDir)
	require.NoError(t, err)

	return fmt.Sprintf(`
name: rules_reply
description: The rules command answers the caller
catalog: %s
config:
  custom_commands:
    commands:
      - triggers: [rules]
        target: caller
        message: "Be nice"
  dead_show_image:
    enabled: false
players:
  - {id: "1", name: Alice, team: t}
steps:
  - command: rules
    sender: "1"
assertions:
  - type: chat_contains
    player: "1"
    text: %q
`, catalog, want)
}

func TestTest_Scenarios(t *testing.T) {
	stdout, _, err := executeCommand(t, "", "test", scenariosDir)
	require.NoError(t, err, stdout)

	assert.Contains(t, stdout, "✓ kill_feed")
	assert.Contains(t, stdout, "✓ round_end")
	assert.Contains(t, stdout, "✓ session")
	assert.Contains(t, stdout, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, stdout, "✓ All scenarios passed")
}

func TestTest_Filter(t *testing.T) {
	stdout, _, err := executeCommand(t, "", "--format", "json", "test", scenariosDir, "--filter", "kill*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "kill_feed", resp.Data.Scenarios[0].Name)
	assert.Equal(t, "none", resp.Data.Scenarios[0].Golden)
}

func TestTest_GoldenLifecycle(t *testing.T) {
	dir := writeFiles(t, t.TempDir(), map[string]string{
		"rules_reply.yaml": rulesScenario(t, "Be nice"),
	})
	golden := filepath.Join(dir, "golden", "rules_reply.golden")

	stdout, _, err := executeCommand(t, "", "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ rules_reply (golden updated)")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"text":"Be nice"`)

	stdout, _, err = executeCommand(t, "", "--format", "json", "test", dir)
	require.NoError(t, err)
	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)

	require.NoError(t, os.WriteFile(golden, []byte("{}"), 0o644))
	stdout, _, err = executeCommand(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ rules_reply")
	assert.Contains(t, stdout, "does not match golden file")
}

func TestTest_FailedAssertion(t *testing.T) {
	dir := writeFiles(t, t.TempDir(), map[string]string{
		"rules_reply.yaml": rulesScenario(t, "Be rude"),
	})

	stdout, _, err := executeCommand(t, "", "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  CLIError   `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	require.NotEmpty(t, resp.Data.Scenarios[0].Errors)
	assert.Contains(t, resp.Data.Scenarios[0].Errors[0], "chat_contains")
}

func TestTest_BadScenarioFile(t *testing.T) {
	dir := writeFiles(t, t.TempDir(), map[string]string{
		"broken.yaml": "name: broken\n",
	})

	stdout, _, err := executeCommand(t, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ broken.yaml")
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestTest_EmptyDir(t *testing.T) {
	stdout, _, err := executeCommand(t, "", "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")
}

func TestTest_MissingDir(t *testing.T) {
	_, _, err := executeCommand(t, "", "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFindScenarioFiles(t *testing.T) {
	dir := writeFiles(t, t.TempDir(), map[string]string{
		"b.yaml":          "",
		"a.yml":           "",
		"notes.txt":       "",
		"nested/c.yaml":   "",
		"golden/a.golden": "",
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, files)

	_, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)
}
