package ir

const (
	// EngineVersion is recorded on every journaled firing.
	EngineVersion = "0.1.0"

	// JournalVersion is the store schema version (PRAGMA user_version).
	JournalVersion = 1
)
