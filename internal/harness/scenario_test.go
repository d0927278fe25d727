package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: one event, one assertion
catalog: catalog.cue
steps:
  - event: EventPlayerDeath
assertions:
  - type: chat_count
    count: 0
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, "catalog.cue", s.Catalog)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "EventPlayerDeath", s.Steps[0].Event)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertChatCount, s.Assertions[0].Type)
}

func TestParseScenario_Full(t *testing.T) {
	data := `
name: full
description: every section
catalog: ../catalog
config:
  event_messages:
    rules:
      - event: EventPlayerDeath
        message: chat.kill
default_locale: de
locales:
  de:
    chat:
      kill: "{Player.Name} ist tot"
players:
  - {id: "1", name: Alice, language: de, team: ct}
steps:
  - event: EventPlayerDeath
    roles: {userid: "1"}
  - advance: 5s
  - rounds_played: 2
  - command: rules
    sender: "1"
assertions:
  - type: chat_contains
    player: "1"
    text: Alice ist tot
  - type: journal_count
    event: EventPlayerDeath
    count: 1
`
	s, err := ParseScenario([]byte(data))
	require.NoError(t, err)

	assert.Contains(t, s.Config, "event_messages")
	assert.Equal(t, "de", s.DefaultLocale)
	assert.Contains(t, s.Locales, "de")
	require.Len(t, s.Players, 1)
	assert.Equal(t, "ct", s.Players[0].Team)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, "5s", s.Steps[1].Advance)
	require.NotNil(t, s.Steps[2].RoundsPlayed)
	assert.Equal(t, 2, *s.Steps[2].RoundsPlayed)
	assert.Equal(t, "1", s.Steps[3].Sender)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			data:    "name: [",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "unknown key",
			data:    minimalScenario + "flow_token: abc\n",
			wantErr: "field flow_token not found",
		},
		{
			name: "missing name",
			data: `
description: d
catalog: c.cue
steps: [{event: X}]
assertions: [{type: chat_count}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			data: `
name: n
catalog: c.cue
steps: [{event: X}]
assertions: [{type: chat_count}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing catalog",
			data: `
name: n
description: d
steps: [{event: X}]
assertions: [{type: chat_count}]
`,
			wantErr: "catalog is required",
		},
		{
			name: "no steps",
			data: `
name: n
description: d
catalog: c.cue
assertions: [{type: chat_count}]
`,
			wantErr: "steps list is required",
		},
		{
			name: "no assertions",
			data: `
name: n
description: d
catalog: c.cue
steps: [{event: X}]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "step with two actions",
			data: `
name: n
description: d
catalog: c.cue
steps: [{event: X, advance: 1s}]
assertions: [{type: chat_count}]
`,
			wantErr: "steps[0]: step must set exactly one",
		},
		{
			name: "player without id",
			data: `
name: n
description: d
catalog: c.cue
players: [{name: Alice}]
steps: [{event: X}]
assertions: [{type: chat_count}]
`,
			wantErr: "players[0]: id is required",
		},
		{
			name: "bad locale",
			data: `
name: n
description: d
catalog: c.cue
locales: {"not a locale!": {greeting: hi}}
steps: [{event: X}]
assertions: [{type: chat_count}]
`,
			wantErr: "locales:",
		},
		{
			name: "unknown assertion",
			data: `
name: n
description: d
catalog: c.cue
steps: [{event: X}]
assertions: [{type: trace_contains}]
`,
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name: "chat_contains without player",
			data: `
name: n
description: d
catalog: c.cue
steps: [{event: X}]
assertions: [{type: chat_contains, text: hi}]
`,
			wantErr: "player is required for chat_contains",
		},
		{
			name: "chat_order without texts",
			data: `
name: n
description: d
catalog: c.cue
steps: [{event: X}]
assertions: [{type: chat_order, player: "1"}]
`,
			wantErr: "player and texts are required",
		},
		{
			name: "hud_contains without html",
			data: `
name: n
description: d
catalog: c.cue
steps: [{event: X}]
assertions: [{type: hud_contains, player: "1"}]
`,
			wantErr: "player and html are required",
		},
		{
			name: "negative count",
			data: `
name: n
description: d
catalog: c.cue
steps: [{event: X}]
assertions: [{type: journal_count, count: -1}]
`,
			wantErr: "count must be non-negative",
		},
		{
			name: "problem without code",
			data: `
name: n
description: d
catalog: c.cue
steps: [{event: X}]
assertions: [{type: problem}]
`,
			wantErr: "code is required for problem",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_ResolvesCatalogRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte(testCatalog), 0o644))
	path := filepath.Join(dir, "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "catalog.cue"), s.Catalog)
}

func TestLoadScenario_MissingCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join(projectRoot(), "testdata", "scenarios"))
	require.NoError(t, err)

	var names []string
	for _, s := range scenarios {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"kill_feed", "round_end", "session"}, names)
}

func TestLoadDir_ReportsBadFilesAndKeepsGoodOnes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.cue"), []byte(testCatalog), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(minimalScenario), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("name: ["), 0o644))

	scenarios, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b.yaml")
	require.Len(t, scenarios, 1)
	assert.Equal(t, "minimal", scenarios[0].Name)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scenarios")
}
