package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

const fileExt = ".json"

// DirStore keeps one JSON file per macro in a folder.
type DirStore struct {
	dir    string
	logger *slog.Logger
}

var _ Store = (*DirStore)(nil)

// NewDirStore returns a store rooted at dir. The folder is created on first save.
func NewDirStore(dir string, logger *slog.Logger) *DirStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DirStore{dir: dir, logger: logger}
}

// Dir returns the folder backing the store.
func (s *DirStore) Dir() string { return s.dir }

func (s *DirStore) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// Save writes the macro atomically through a temporary file and rename.
func (s *DirStore) Save(ctx context.Context, name string, tl timeline.Timeline) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(newRecord(name, tl), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal macro %q: %w", name, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create macro folder: %w", err)
	}

	path := s.path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write macro %q: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename macro %q: %w", name, err)
	}
	s.logger.Debug("macro saved", "name", name, "path", path, "events", tl.Len())
	return path, nil
}

// Load reads the macro's events.
func (s *DirStore) Load(ctx context.Context, name string) (timeline.Timeline, error) {
	rec, err := s.Info(ctx, name)
	if err != nil {
		return timeline.Timeline{}, err
	}
	return rec.Events, nil
}

// Info reads the full record.
func (s *DirStore) Info(ctx context.Context, name string) (Record, error) {
	if err := ValidateName(name); err != nil {
		return Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, fmt.Errorf("%w: %q in %s", ErrNotFound, name, s.dir)
		}
		return Record{}, fmt.Errorf("read macro %q: %w", name, err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		return Record{}, fmt.Errorf("macro file %q: %w", name+fileExt, err)
	}
	if rec.Name == "" {
		rec.Name = name
	}
	return rec, nil
}

// List returns the names of readable macros. A missing folder lists as empty.
func (s *DirStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read macro folder: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), fileExt)
		if ValidateName(name) != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err == nil {
			_, err = decodeRecord(data)
		}
		if err != nil {
			s.logger.Warn("skipping corrupt macro file", "path", filepath.Join(s.dir, entry.Name()), "error", err)
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the macro file if present.
func (s *DirStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete macro %q: %w", name, err)
	}
	return nil
}

// Close is a no-op.
func (s *DirStore) Close() error { return nil }
