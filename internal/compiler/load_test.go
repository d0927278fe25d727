package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deathCatalog = `
event: EventPlayerDeath: {
	accessor: true
	fields: { Weapon: string }
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "catalog.cue", deathCatalog)

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	ev, ok := cat.Event("eventplayerdeath")
	require.True(t, ok)
	assert.True(t, ev.Accessor)
}

func TestLoadCatalog_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "events.cue", deathCatalog)
	writeFile(t, dir, "entities.cue", `entity: Player: fields: { SteamID: int }`)

	cat, err := LoadCatalog(dir)
	require.NoError(t, err)
	require.Len(t, cat.Entities, 1)
	assert.Len(t, cat.Events, 1)
}

func TestLoadCatalog_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCatalog(filepath.Join(dir, "missing.cue"))
	assert.ErrorContains(t, err, "catalog")

	bad := writeFile(t, dir, "bad.cue", `event: {`)
	_, err = LoadCatalog(bad)
	assert.Error(t, err)

	unknown := writeFile(t, dir, "unknown.cue", `event: EventX: fields: { Gun: "Weapon" }`)
	_, err = LoadCatalog(unknown)
	assert.ErrorContains(t, err, ErrUnknownEntity)
}
