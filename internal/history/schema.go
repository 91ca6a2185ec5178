package history

// schemaV1 creates the fetch-audit tables
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS fetches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	invocation_id TEXT NOT NULL,
	playlist TEXT NOT NULL,
	song_id TEXT NOT NULL,
	bytes_written INTEGER NOT NULL DEFAULT 0,
	error TEXT,
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fetches_song ON fetches(song_id);
CREATE INDEX IF NOT EXISTS idx_fetches_invocation ON fetches(invocation_id);
CREATE INDEX IF NOT EXISTS idx_fetches_completed ON fetches(completed_at);
`
