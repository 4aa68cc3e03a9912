// Package session ties a recorder, a player and a store into the record/play/stop
// workflow driven by hotkeys or the CLI. Recording stops playback, playing stops and
// saves an in-progress recording first, and repeated playback runs on its own
// goroutine so the caller stays responsive.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/offlinefirst/macroreplay/pkg/player"
	"github.com/offlinefirst/macroreplay/pkg/recorder"
	"github.com/offlinefirst/macroreplay/pkg/store"
	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

// DefaultName is the name a finished recording is saved under.
const DefaultName = "Quick_Record"

// ErrNoSelection is returned when playback is requested without a macro name and
// nothing has been recorded or selected yet.
var ErrNoSelection = errors.New("no macro selected")

// Options wires a session.
type Options struct {
	Store    store.Store
	Recorder *recorder.Recorder
	Player   *player.Player
	// Excluded keys (normally the record and play hotkeys) are filtered from recordings.
	Excluded    []string
	Speed       float64
	RepeatCount int
	SaveName    string
	OnStatus    func(string)
	Clock       func() time.Time
	Logger      *slog.Logger
	Tracer      trace.Tracer
}

// Session orchestrates one recorder and one player.
type Session struct {
	store    store.Store
	rec      *recorder.Recorder
	player   *player.Player
	excluded []string
	speed    float64
	repeat   int
	name     string
	onStatus func(string)
	logger   *slog.Logger
	tracer   trace.Tracer
	ctrl     *Controller

	// ops serialises the public operations.
	ops sync.Mutex

	mu       sync.Mutex
	playing  bool
	done     chan struct{}
	selected string
	lastErr  error
	status   string
}

// New validates opts and returns an idle session.
func New(opts Options) (*Session, error) {
	if opts.Store == nil || opts.Recorder == nil || opts.Player == nil {
		return nil, errors.New("session requires a store, recorder and player")
	}
	speed := opts.Speed
	if speed == 0 {
		speed = 1
	}
	if err := player.ValidateSpeed(speed); err != nil {
		return nil, err
	}
	repeat := opts.RepeatCount
	if repeat < 1 {
		repeat = 1
	}
	name := opts.SaveName
	if name == "" {
		name = DefaultName
	}
	if err := store.ValidateName(name); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/offlinefirst/macroreplay/pkg/session")
	}
	return &Session{
		store:    opts.Store,
		rec:      opts.Recorder,
		player:   opts.Player,
		excluded: append([]string(nil), opts.Excluded...),
		speed:    speed,
		repeat:   repeat,
		name:     name,
		onStatus: opts.OnStatus,
		logger:   logger,
		tracer:   tracer,
		ctrl:     NewController(opts.Clock),
		status:   "Idle",
	}, nil
}

// State reports the current activity.
func (s *Session) State() State { return s.ctrl.State() }

// Controller exposes the state journal.
func (s *Session) Controller() *Controller { return s.ctrl }

// Status returns the last status line.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Selected returns the macro that playback defaults to.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select sets the macro that playback defaults to.
func (s *Session) Select(name string) {
	s.mu.Lock()
	s.selected = name
	s.mu.Unlock()
}

// ToggleRecord starts a recording, or stops the current one and saves it. It returns
// the saved macro name, empty when nothing was captured or a recording just started.
func (s *Session) ToggleRecord(ctx context.Context) (string, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	if s.rec.Recording() {
		return s.stopRecording(ctx)
	}
	return "", s.startRecording(ctx)
}

// TogglePlay stops the current playback, or starts playing name (the selected macro
// when empty) RepeatCount times in the background.
func (s *Session) TogglePlay(ctx context.Context, name string) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	if s.isPlaying() {
		s.stopPlaying(ctx)
		return nil
	}
	return s.startPlaying(ctx, name)
}

// StopAll stops recording (saving it) and playback.
func (s *Session) StopAll(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	var err error
	if s.rec.Recording() {
		_, err = s.stopRecording(ctx)
	}
	s.stopPlaying(ctx)
	return err
}

// Close discards an in-progress recording and stops playback.
func (s *Session) Close(ctx context.Context) {
	s.ops.Lock()
	defer s.ops.Unlock()
	if s.rec.Recording() {
		discarded := s.rec.Stop()
		s.ctrl.Transition(StateIdle, "closed")
		s.logger.Info("recording discarded", "events", discarded.Len())
	}
	s.stopPlaying(ctx)
}

// Wait blocks until the session is idle and returns the last playback error.
func (s *Session) Wait(ctx context.Context) error {
	if err := s.ctrl.WaitIdle(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) startRecording(ctx context.Context) error {
	s.stopPlaying(ctx)
	if err := s.rec.Start(s.excluded); err != nil {
		s.setStatus("Record Error: " + err.Error())
		return fmt.Errorf("start recording: %w", err)
	}
	s.ctrl.Transition(StateRecording, "record")
	s.setStatus("Recording...")
	return nil
}

func (s *Session) stopRecording(ctx context.Context) (string, error) {
	tl := s.rec.Stop()
	s.ctrl.Transition(StateIdle, "record stopped")
	s.setStatus("Idle")
	if tl.IsEmpty() {
		return "", nil
	}

	ctx, span := s.tracer.Start(ctx, "session.save", trace.WithAttributes(
		attribute.String("macro.name", s.name),
		attribute.Int("macro.events", tl.Len()),
	))
	defer span.End()

	location, err := s.store.Save(ctx, s.name, tl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.setStatus("Save Error: " + err.Error())
		return "", fmt.Errorf("save recording: %w", err)
	}
	s.Select(s.name)
	s.logger.Info("recording saved", "name", s.name, "location", location, "events", tl.Len(), "duration", tl.Duration())
	return s.name, nil
}

func (s *Session) startPlaying(ctx context.Context, name string) error {
	if s.rec.Recording() {
		if _, err := s.stopRecording(ctx); err != nil {
			return err
		}
	}
	if name == "" {
		name = s.Selected()
	}
	if name == "" {
		return ErrNoSelection
	}
	tl, err := s.store.Load(ctx, name)
	if err != nil {
		s.setStatus("Load Error: " + err.Error())
		return fmt.Errorf("load macro %q: %w", name, err)
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.playing = true
	s.done = done
	s.selected = name
	s.lastErr = nil
	s.mu.Unlock()

	s.ctrl.Transition(StatePlaying, "play "+name)
	s.setStatus(fmt.Sprintf("Playing: %s (1/%d)", name, s.repeat))
	s.logger.Info("playback started", "name", name, "events", tl.Len(), "speed", s.speed, "repeat", s.repeat)

	go s.run(ctx, name, tl, done)
	return nil
}

func (s *Session) run(ctx context.Context, name string, tl timeline.Timeline, done chan struct{}) {
	defer close(done)
	completed, err := player.Repeat(ctx, s.player, tl, s.speed, s.repeat, s.isPlaying, func(i, n int) {
		s.setStatus(fmt.Sprintf("Playing: %s (%d/%d)", name, i, n))
	})

	s.mu.Lock()
	s.playing = false
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("playback failed", "name", name, "error", err)
		s.setStatus("Play Error: " + err.Error())
	} else {
		s.logger.Info("playback finished", "name", name, "iterations", completed)
		s.setStatus("Idle")
	}
	s.ctrl.Transition(StateIdle, "play finished")
}

// stopPlaying requests a stop and waits for the playback goroutine to exit.
func (s *Session) stopPlaying(ctx context.Context) {
	s.mu.Lock()
	done := s.done
	s.playing = false
	s.mu.Unlock()
	if done == nil {
		return
	}
	s.player.Stop()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (s *Session) isPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Session) setStatus(msg string) {
	s.mu.Lock()
	s.status = msg
	s.mu.Unlock()
	if s.onStatus != nil {
		s.onStatus(msg)
	}
}
