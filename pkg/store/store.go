// Package store persists named timelines. Two backends share one record format: a
// directory of <name>.json files and a single SQLite database.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

var (
	// ErrNotFound is returned when no macro exists under the requested name.
	ErrNotFound = errors.New("macro not found")
	// ErrCorrupt is returned when a stored macro cannot be decoded.
	ErrCorrupt = errors.New("macro record is corrupt")
	// ErrInvalidName is returned for names that cannot be used as a storage key.
	ErrInvalidName = errors.New("invalid macro name")
)

var (
	timeNow = time.Now
	newID   = uuid.NewString
)

// Store saves and loads named timelines.
type Store interface {
	// Save writes tl under name, replacing any previous macro with that name, and
	// returns a description of where it was written.
	Save(ctx context.Context, name string, tl timeline.Timeline) (string, error)
	Load(ctx context.Context, name string) (timeline.Timeline, error)
	Info(ctx context.Context, name string) (Record, error)
	// List returns the readable macro names in sorted order. Corrupt entries are
	// skipped with a warning.
	List(ctx context.Context) ([]string, error)
	// Delete removes the macro. Deleting a missing macro is not an error.
	Delete(ctx context.Context, name string) error
	Close() error
}

// Record is the persisted form of a macro.
type Record struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Created string            `json:"created"`
	Events  timeline.Timeline `json:"events"`
}

// CreatedAt parses the creation timestamp.
func (r Record) CreatedAt() (time.Time, error) {
	return time.Parse(time.RFC3339, r.Created)
}

// ValidateName rejects names that are empty, hidden, or would escape the store.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

func newRecord(name string, tl timeline.Timeline) Record {
	return Record{
		ID:      newID(),
		Name:    name,
		Created: timeNow().Truncate(time.Second).Format(time.RFC3339),
		Events:  tl,
	}
}

// decodeRecord parses a stored record. A record without an events field, or with
// events that fail validation, is corrupt.
func decodeRecord(data []byte) (Record, error) {
	var raw struct {
		ID      string          `json:"id"`
		Name    string          `json:"name"`
		Created string          `json:"created"`
		Events  json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(raw.Events) == 0 || string(raw.Events) == "null" {
		return Record{}, fmt.Errorf("%w: missing events", ErrCorrupt)
	}
	tl, err := decodeEvents(raw.Events)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: raw.ID, Name: raw.Name, Created: raw.Created, Events: tl}, nil
}

func decodeEvents(data []byte) (timeline.Timeline, error) {
	var tl timeline.Timeline
	if err := json.Unmarshal(data, &tl); err != nil {
		return timeline.Timeline{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := tl.Validate(); err != nil {
		return timeline.Timeline{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return tl, nil
}
