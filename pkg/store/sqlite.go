package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // CGO-free SQLite

	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

// SQLiteStore keeps every macro as a row in one database file.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database folder: %w", err)
		}
	}

	// WAL + busy timeout so a reader never trips "database is locked".
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS macros(
	  name        TEXT PRIMARY KEY,
	  id          TEXT NOT NULL,
	  created     TEXT NOT NULL,
	  event_count INTEGER NOT NULL,
	  events_json TEXT NOT NULL CHECK (json_valid(events_json))
	);
	CREATE INDEX IF NOT EXISTS idx_macros_created ON macros(created);
	`)
	if err != nil {
		return fmt.Errorf("create macro tables: %w", err)
	}
	return nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// Save upserts the macro row.
func (s *SQLiteStore) Save(ctx context.Context, name string, tl timeline.Timeline) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	rec := newRecord(name, tl)
	events, err := json.Marshal(rec.Events)
	if err != nil {
		return "", fmt.Errorf("marshal macro %q: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO macros(name, id, created, event_count, events_json) VALUES(?,?,?,?,json(?))
	ON CONFLICT(name) DO UPDATE SET
	  id = excluded.id,
	  created = excluded.created,
	  event_count = excluded.event_count,
	  events_json = excluded.events_json`,
		rec.Name, rec.ID, rec.Created, tl.Len(), string(events))
	if err != nil {
		return "", fmt.Errorf("save macro %q: %w", name, err)
	}
	s.logger.Debug("macro saved", "name", name, "database", s.path, "events", tl.Len())
	return s.path + "#" + name, nil
}

// Load reads the macro's events.
func (s *SQLiteStore) Load(ctx context.Context, name string) (timeline.Timeline, error) {
	rec, err := s.Info(ctx, name)
	if err != nil {
		return timeline.Timeline{}, err
	}
	return rec.Events, nil
}

// Info reads the full record.
func (s *SQLiteStore) Info(ctx context.Context, name string) (Record, error) {
	if err := ValidateName(name); err != nil {
		return Record{}, err
	}
	var (
		rec    Record
		events string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, id, created, events_json FROM macros WHERE name = ?`, name,
	).Scan(&rec.Name, &rec.ID, &rec.Created, &events)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %q in %s", ErrNotFound, name, s.path)
	}
	if err != nil {
		return Record{}, fmt.Errorf("read macro %q: %w", name, err)
	}
	tl, err := decodeEvents([]byte(events))
	if err != nil {
		return Record{}, fmt.Errorf("macro %q: %w", name, err)
	}
	rec.Events = tl
	return rec, nil
}

// List returns macro names in sorted order, skipping rows whose events do not decode.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, events_json FROM macros ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list macros: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name, events string
		if err := rows.Scan(&name, &events); err != nil {
			return nil, fmt.Errorf("scan macro row: %w", err)
		}
		if _, err := decodeEvents([]byte(events)); err != nil {
			s.logger.Warn("skipping corrupt macro row", "name", name, "error", err)
			continue
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list macros: %w", err)
	}
	return names, nil
}

// Delete removes the row if present.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM macros WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete macro %q: %w", name, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
