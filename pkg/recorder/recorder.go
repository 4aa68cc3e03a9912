// Package recorder merges live pointer and keyboard hook callbacks into a single
// ordered, filtered timeline.
package recorder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/offlinefirst/macroreplay/pkg/input"
	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

// ErrAlreadyRecording is returned by Start while a recording is in progress.
var ErrAlreadyRecording = errors.New("recorder already recording")

// Options controls recorder behaviour.
type Options struct {
	// Clock supplies the start instant and callback times. Readings from time.Now
	// carry a monotonic component so wall clock adjustments do not skew offsets.
	Clock  func() time.Time
	Logger *slog.Logger
}

// Stats summarises the current or last recording.
type Stats struct {
	Events   int
	Filtered int
}

// Recorder captures one timeline per Start/Stop cycle.
type Recorder struct {
	pointer  input.PointerHook
	keyboard input.KeyboardHook
	clock    func() time.Time
	logger   *slog.Logger

	// lifecycle serialises Start and Stop; mu guards the buffer shared by callbacks.
	lifecycle sync.Mutex
	listeners []input.Listener

	mu        sync.Mutex
	recording bool
	start     time.Time
	excluded  map[string]struct{}
	events    []timeline.Event
	filtered  int
}

// New constructs an idle recorder reading from the given hooks.
func New(pointer input.PointerHook, keyboard input.KeyboardHook, opts Options) *Recorder {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{
		pointer:  pointer,
		keyboard: keyboard,
		clock:    clock,
		logger:   logger,
	}
}

// Start clears the buffer and begins capturing. Key identifiers listed in excluded
// are dropped at the callback and never reach the timeline.
func (r *Recorder) Start(excluded []string) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.events = nil
	r.filtered = 0
	r.excluded = make(map[string]struct{}, len(excluded))
	for _, key := range excluded {
		if key != "" {
			r.excluded[key] = struct{}{}
		}
	}
	r.start = r.clock()
	r.recording = true
	r.mu.Unlock()

	pointer, err := r.pointer.ListenPointer(input.PointerCallbacks{
		OnClick:  r.onClick,
		OnScroll: r.onScroll,
	})
	if err != nil {
		r.abort()
		return fmt.Errorf("start pointer hook: %w", err)
	}
	r.listeners = append(r.listeners, pointer)

	keyboard, err := r.keyboard.ListenKeyboard(input.KeyboardCallbacks{
		OnPress:   func(k timeline.RawKey) { r.onKey(k, true) },
		OnRelease: func(k timeline.RawKey) { r.onKey(k, false) },
	})
	if err != nil {
		r.stopListeners()
		r.abort()
		return fmt.Errorf("start keyboard hook: %w", err)
	}
	r.listeners = append(r.listeners, keyboard)

	r.logger.Info("recording started", "excluded", excluded)
	return nil
}

// Stop halts both capture streams and returns the captured timeline. It is a no-op
// returning an empty timeline when not recording.
func (r *Recorder) Stop() timeline.Timeline {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	// Listeners must be stopped without holding mu: in-flight callbacks need it.
	r.stopListeners()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return timeline.Timeline{}
	}
	r.recording = false
	tl := timeline.New(r.events)
	r.logger.Info("recording stopped", "events", len(r.events), "filtered", r.filtered, "duration", tl.Duration())
	return tl
}

// Recording reports whether capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Len returns the number of events buffered so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Stats reports counts for the current or last recording.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Events: len(r.events), Filtered: r.filtered}
}

func (r *Recorder) stopListeners() {
	for _, l := range r.listeners {
		l.Stop()
	}
	r.listeners = nil
}

func (r *Recorder) abort() {
	r.mu.Lock()
	r.recording = false
	r.events = nil
	r.mu.Unlock()
}

// appendLocked stamps and appends an event. The offset is taken inside the critical
// section so buffer order and offset order always agree.
func (r *Recorder) appendLocked(ev timeline.Event) {
	ev.T = timeline.Offset(r.clock().Sub(r.start))
	if n := len(r.events); n > 0 && ev.T < r.events[n-1].T {
		ev.T = r.events[n-1].T
	}
	r.events = append(r.events, ev)
}

func (r *Recorder) onClick(x, y int, button string, pressed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.appendLocked(timeline.Click(0, x, y, button, pressed))
}

func (r *Recorder) onScroll(x, y, dx, dy int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	r.appendLocked(timeline.Scroll(0, x, y, dx, dy))
}

func (r *Recorder) onKey(raw timeline.RawKey, pressed bool) {
	id := timeline.NormalizeKey(raw)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}
	if _, skip := r.excluded[id]; skip {
		r.filtered++
		return
	}
	r.appendLocked(timeline.KeyEvent(0, id, pressed))
}
