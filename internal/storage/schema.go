package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is written to export_metadata when a database is created.
const SchemaVersion = "1"

// CreateSchema creates the export tables and indexes if they do not exist.
// Uses a transaction so a partially created schema is never left behind.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"export_metadata", createMetadataTable},
		{"runs", createRunsTable},
		{"declarations", createDeclarationsTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(`
		INSERT INTO export_metadata (key, value, updated_at) VALUES ('schema_version', ?, ?)
		ON CONFLICT(key) DO NOTHING`, SchemaVersion, now); err != nil {
		return fmt.Errorf("failed to bootstrap export_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}

	return nil
}

// GetSchemaVersion retrieves the schema version from export_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='export_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check export_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil
	}

	var version string
	err = db.QueryRow("SELECT value FROM export_metadata WHERE key = 'schema_version'").Scan(&version)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("schema_version key not found in export_metadata")
	}
	if err != nil {
		return "", fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Table DDL constants

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS export_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,                         -- UUIDv4
    target TEXT NOT NULL,                        -- file path or inline target name
    started_at TIMESTAMP NOT NULL
)`

const createDeclarationsTable = `
CREATE TABLE IF NOT EXISTS declarations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,                    -- 1-based attempt number within the target
    type_name TEXT NOT NULL,
    identifier TEXT NOT NULL,
    declared_size INTEGER NOT NULL,
    value_count INTEGER NOT NULL,
    values_json TEXT NOT NULL,                   -- JSON array of value tokens, original text
    span TEXT NOT NULL,
    flags INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_declarations_run_id ON declarations(run_id)`,
	`CREATE INDEX IF NOT EXISTS idx_declarations_identifier ON declarations(identifier)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target)`,
}
