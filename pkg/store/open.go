package store

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// Backend names a storage implementation.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend    string
	Dir        string
	SQLitePath string
	Logger     *slog.Logger
}

// Open returns the configured backend. An empty SQLitePath places the database in Dir.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendJSON:
		return NewDirStore(opts.Dir, opts.Logger), nil
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, "macros.db")
		}
		return OpenSQLite(path, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
