package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mvp-joe/dsconv/internal/scanner"
)

// Exporter writes matched declarations to a SQLite database.
// Each scanned target becomes one run; records are appended under that run.
type Exporter struct {
	db *sql.DB
}

// Run is one scanned target.
type Run struct {
	ID        string
	Target    string
	StartedAt time.Time
}

// Declaration is a stored record.
type Declaration struct {
	RunID        string
	Ordinal      int
	TypeName     string
	Identifier   string
	DeclaredSize int
	Values       []string
	Span         string
	Flags        scanner.Flags
}

// Open opens or creates the export database at dbPath.
// Enables foreign keys and creates the schema if needed.
func Open(dbPath string) (*Exporter, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Keep a single connection so PRAGMA foreign_keys stays in effect
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Exporter{db: db}, nil
}

// BeginRun registers a new run for target and returns it.
func (e *Exporter) BeginRun(target string) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Target:    target,
		StartedAt: time.Now().UTC(),
	}

	_, err := sq.Insert("runs").
		Columns("id", "target", "started_at").
		Values(run.ID, run.Target, run.StartedAt.Format(time.RFC3339)).
		RunWith(e.db).
		Exec()
	if err != nil {
		return nil, fmt.Errorf("failed to insert run for %s: %w", target, err)
	}

	return run, nil
}

// SaveRecords appends records to run. All records are written or none.
func (e *Exporter) SaveRecords(run *Run, records []scanner.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	for _, rec := range records {
		values := rec.Values
		if values == nil {
			values = []string{}
		}
		valuesJSON, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("failed to encode values of %s: %w", rec.Identifier, err)
		}

		_, err = sq.Insert("declarations").
			Columns("run_id", "ordinal", "type_name", "identifier", "declared_size", "value_count", "values_json", "span", "flags").
			Values(
				run.ID,
				rec.Ordinal,
				rec.TypeName,
				rec.Identifier,
				rec.DeclaredSize,
				len(rec.Values),
				string(valuesJSON),
				rec.Span.Text,
				int(rec.Flags),
			).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to insert declaration %s: %w", rec.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Runs returns every run in start order.
func (e *Exporter) Runs() ([]Run, error) {
	rows, err := sq.Select("id", "target", "started_at").
		From("runs").
		OrderBy("started_at", "rowid").
		RunWith(e.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedAt string
		if err := rows.Scan(&run.ID, &run.Target, &startedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start time of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Declarations returns the records stored for runID in ordinal order.
func (e *Exporter) Declarations(runID string) ([]Declaration, error) {
	rows, err := sq.Select("run_id", "ordinal", "type_name", "identifier", "declared_size", "values_json", "span", "flags").
		From("declarations").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("ordinal").
		RunWith(e.db).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query declarations: %w", err)
	}
	defer rows.Close()

	var decls []Declaration
	for rows.Next() {
		var d Declaration
		var valuesJSON string
		var flags int
		if err := rows.Scan(&d.RunID, &d.Ordinal, &d.TypeName, &d.Identifier, &d.DeclaredSize, &valuesJSON, &d.Span, &flags); err != nil {
			return nil, fmt.Errorf("failed to scan declaration: %w", err)
		}
		if err := json.Unmarshal([]byte(valuesJSON), &d.Values); err != nil {
			return nil, fmt.Errorf("failed to decode values of %s: %w", d.Identifier, err)
		}
		d.Flags = scanner.Flags(flags)
		decls = append(decls, d)
	}

	return decls, rows.Err()
}

// Close releases the database.
func (e *Exporter) Close() error {
	return e.db.Close()
}
