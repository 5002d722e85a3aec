package sqlite

// Schema DDL. Statements are idempotent so Attach can run them on every
// open.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS entries (
    key TEXT PRIMARY KEY,
    kind INTEGER NOT NULL,
    data TEXT NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);`,
}

const (
	selectEntry = `SELECT kind, data FROM entries WHERE key = ?`
	upsertEntry = `INSERT INTO entries (key, kind, data) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET kind = excluded.kind, data = excluded.data`
	deleteEntry = `DELETE FROM entries WHERE key = ?`
	selectKeys  = `SELECT key FROM entries`
)
