package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

func fixedClock(t *testing.T) {
	t.Helper()
	origNow, origID := timeNow, newID
	timeNow = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 900, time.UTC) }
	newID = func() string { return "6f1c1a52-6f0c-4a4b-9b0e-1d2f3a4b5c6d" }
	t.Cleanup(func() {
		timeNow, newID = origNow, origID
	})
}

func sampleTimeline() timeline.Timeline {
	return timeline.New([]timeline.Event{
		timeline.Click(0.1234, 10, 20, "left", true),
		timeline.Click(0.2, 10, 20, "left", false),
		timeline.Scroll(0.5, 100, 200, 0, -3),
		timeline.KeyEvent(0.75, "v", true),
		timeline.KeyEvent(0.75, "enter", false),
	})
}

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{name: "json", open: func(t *testing.T) Store {
			return NewDirStore(filepath.Join(t.TempDir(), "macros"), nil)
		}},
		{name: "sqlite", open: func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "macros.db"), nil)
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		}},
	}
}

func TestRoundTrip(t *testing.T) {
	fixedClock(t)
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			tl := sampleTimeline()
			if _, err := s.Save(ctx, "demo", tl); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := s.Load(ctx, "demo")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !got.Equal(tl) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got.Events(), tl.Events())
			}

			rec, err := s.Info(ctx, "demo")
			if err != nil {
				t.Fatalf("info: %v", err)
			}
			if rec.Name != "demo" || rec.ID == "" || rec.Created != "2024-03-09T14:05:07Z" {
				t.Fatalf("unexpected record metadata: %+v", rec)
			}
			if _, err := rec.CreatedAt(); err != nil {
				t.Fatalf("created should parse: %v", err)
			}
		})
	}
}

func TestSaveEmptyTimeline(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			if _, err := s.Save(ctx, "empty", timeline.Timeline{}); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := s.Load(ctx, "empty")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !got.IsEmpty() {
				t.Fatalf("expected empty timeline, got %d events", got.Len())
			}
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			if _, err := s.Save(ctx, "m", sampleTimeline()); err != nil {
				t.Fatalf("save: %v", err)
			}
			second := timeline.New([]timeline.Event{timeline.KeyEvent(0, "x", true)})
			if _, err := s.Save(ctx, "m", second); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, err := s.Load(ctx, "m")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !got.Equal(second) {
				t.Fatalf("expected overwritten macro, got %+v", got.Events())
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			if _, err := s.Load(ctx, "nope"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestListSortedAndDelete(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			names, err := s.List(ctx)
			if err != nil {
				t.Fatalf("list empty: %v", err)
			}
			if len(names) != 0 {
				t.Fatalf("expected no macros, got %v", names)
			}

			for _, name := range []string{"zeta", "Alpha", "mid"} {
				if _, err := s.Save(ctx, name, sampleTimeline()); err != nil {
					t.Fatalf("save %s: %v", name, err)
				}
			}
			names, err = s.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if want := []string{"Alpha", "mid", "zeta"}; !reflect.DeepEqual(names, want) {
				t.Fatalf("list = %v, want %v", names, want)
			}

			if err := s.Delete(ctx, "mid"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := s.Delete(ctx, "mid"); err != nil {
				t.Fatalf("delete missing should be a no-op: %v", err)
			}
			if _, err := s.Load(ctx, "mid"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected deleted macro to be gone, got %v", err)
			}
		})
	}
}

func TestInvalidNames(t *testing.T) {
	ctx := context.Background()
	s := NewDirStore(t.TempDir(), nil)
	for _, name := range []string{"", "  ", ".hidden", "a/b", `a\b`, "../escape"} {
		if _, err := s.Save(ctx, name, sampleTimeline()); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("name %q: expected ErrInvalidName, got %v", name, err)
		}
	}
	if err := ValidateName("Quick_Record"); err != nil {
		t.Fatalf("expected valid name: %v", err)
	}
}

func TestDirStoreCorruptFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewDirStore(dir, nil)
	if _, err := s.Save(ctx, "good", sampleTimeline()); err != nil {
		t.Fatalf("save: %v", err)
	}

	files := map[string]string{
		"broken.json":    `{"name": "broken", "events": [`,
		"no_events.json": `{"name": "no_events"}`,
		"bad_event.json": `{"name": "bad_event", "events": [{"type": "teleport", "t": 0}]}`,
		"notes.txt":      `not a macro`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	names, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"good"}) {
		t.Fatalf("expected corrupt files skipped, got %v", names)
	}

	for _, name := range []string{"broken", "no_events", "bad_event"} {
		if _, err := s.Load(ctx, name); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%s: expected ErrCorrupt, got %v", name, err)
		}
	}
}

func TestDirStoreListMissingFolder(t *testing.T) {
	s := NewDirStore(filepath.Join(t.TempDir(), "absent"), nil)
	names, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty list, got %v", names)
	}
}

func TestDirStoreFileFormat(t *testing.T) {
	fixedClock(t)
	dir := t.TempDir()
	s := NewDirStore(dir, nil)
	path, err := s.Save(context.Background(), "fmt", timeline.New([]timeline.Event{timeline.KeyEvent(0.5, "a", true)}))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if path != filepath.Join(dir, "fmt.json") {
		t.Fatalf("unexpected path %s", path)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	rec, err := decodeRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.ID != "6f1c1a52-6f0c-4a4b-9b0e-1d2f3a4b5c6d" || rec.Name != "fmt" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestDirStoreAcceptsLegacyRecord(t *testing.T) {
	dir := t.TempDir()
	body := `{
  "name": "legacy",
  "created": "2023-11-02T09:15:00",
  "events": [
    {"type": "click", "x": 1, "y": 2, "button": "left", "pressed": true, "t": 0.0},
    {"type": "key", "key": "a", "pressed": true, "t": 0.25}
  ]
}`
	if err := os.WriteFile(filepath.Join(dir, "legacy.json"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tl, err := NewDirStore(dir, nil).Load(context.Background(), "legacy")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tl.Len() != 2 || tl.At(1).Key != "a" {
		t.Fatalf("unexpected events: %+v", tl.Events())
	}
}

func TestSQLiteCorruptRowSkipped(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "m.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := s.Save(ctx, "good", sampleTimeline()); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err = s.db.Exec(`INSERT INTO macros(name, id, created, event_count, events_json) VALUES(?,?,?,?,?)`,
		"bad", "id", "2024-01-01T00:00:00Z", 1, `[{"type":"click"}]`)
	if err != nil {
		t.Fatalf("insert corrupt row: %v", err)
	}

	names, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"good"}) {
		t.Fatalf("expected corrupt row skipped, got %v", names)
	}
	if _, err := s.Load(ctx, "bad"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Backend: BackendJSON, Dir: dir})
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	if _, ok := s.(*DirStore); !ok {
		t.Fatalf("expected DirStore, got %T", s)
	}

	s, err = Open(Options{Backend: BackendSQLite, Dir: dir})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()
	sq, ok := s.(*SQLiteStore)
	if !ok {
		t.Fatalf("expected SQLiteStore, got %T", s)
	}
	if sq.Path() != filepath.Join(dir, "macros.db") {
		t.Fatalf("unexpected database path %s", sq.Path())
	}

	if _, err := Open(Options{Backend: "s3"}); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
