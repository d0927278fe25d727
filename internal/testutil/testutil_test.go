package testutil

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDs(t *testing.T) {
	gen := NewSequentialIDs("f")
	assert.Equal(t, "f-1", gen.Generate())
	assert.Equal(t, "f-2", gen.Generate())

	gen.Reset()
	assert.Equal(t, "f-1", gen.Generate())
}

func TestSequentialIDs_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "firing-1", NewSequentialIDs("").Generate())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDs("x")
	seen := sync.Map{}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, dup := seen.LoadOrStore(gen.Generate(), true)
				assert.False(t, dup)
			}
		}()
	}
	wg.Wait()
}

func TestLogRecorder(t *testing.T) {
	rec, logger := NewLogRecorder()

	logger.With("component", "engine").Warn("bad rule", "code", "UNRESOLVED_EVENT_TYPE", "rule_index", 2)
	logger.Debug("noise")

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, slog.LevelWarn, entries[0].Level)
	assert.Equal(t, "engine", entries[0].Attrs["component"])
	assert.Equal(t, int64(2), entries[0].Attrs["rule_index"])

	coded := rec.WithCode("UNRESOLVED_EVENT_TYPE")
	require.Len(t, coded, 1)
	assert.Equal(t, "bad rule", coded[0].Message)
	assert.Empty(t, rec.WithCode("OTHER"))
}
