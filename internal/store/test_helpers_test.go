package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/msgpulse/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestFiring creates a firing with one delivery per recipient.
func createTestFiring(id, event string, seq int64, recipients ...string) ir.Firing {
	f := ir.Firing{
		ID:            id,
		Seq:           seq,
		Event:         event,
		RulesetHash:   "test-ruleset",
		EngineVersion: ir.EngineVersion,
	}
	for i, r := range recipients {
		f.Deliveries = append(f.Deliveries, ir.Delivery{
			FiringID:    id,
			Seq:         seq + int64(i) + 1,
			Event:       event,
			RuleIndex:   0,
			Target:      "all",
			RecipientID: r,
			Text:        fmt.Sprintf("%s for %s", event, r),
		})
	}
	return f
}
