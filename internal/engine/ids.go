package engine

import (
	"github.com/google/uuid"
)

// FiringIDGenerator produces identifiers for dispatched firings.
// Implemented by UUIDv7Generator and by testutil.SequentialIDs.
type FiringIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers, so journal
// rows sort by creation time. Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
