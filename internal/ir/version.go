package ir

// Version constants for persisted data and the engine.
const (
	// SnapshotVersion is the schema version of persisted rule snapshots.
	// Stores written under a different version are discarded on load.
	SnapshotVersion = 1

	// EngineVersion is the touchy engine version.
	EngineVersion = "0.3.0"
)
