// ABOUTME: SQLite schema for the embedded chunk store
// ABOUTME: One table, keyed by caller-assigned fragment id
package sqlite

// Schema contains all SQL statements for chunk store initialization
const Schema = `
CREATE TABLE IF NOT EXISTS chunks (
    id INTEGER PRIMARY KEY,
    text TEXT NOT NULL,
    metadata TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// SchemaVersion is the current schema version
const SchemaVersion = 1
