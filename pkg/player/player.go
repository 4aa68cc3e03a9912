// Package player replays a timeline against an injector, honouring relative timing
// scaled by a speed factor. Waits are cancelable: Stop or context cancellation wakes
// an in-progress wait immediately, and any keys left pressed are released on exit.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/offlinefirst/macroreplay/pkg/input"
	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

// DefaultSettleDelay is the pause between moving the pointer and acting on it.
const DefaultSettleDelay = 10 * time.Millisecond

const tracerName = "github.com/offlinefirst/macroreplay/pkg/player"

// ErrInvalidSpeed is returned when the speed factor is not a finite positive number.
var ErrInvalidSpeed = errors.New("playback speed must be a finite number greater than zero")

// Options controls player behaviour.
type Options struct {
	// SettleDelay is applied after each pointer move. Zero selects DefaultSettleDelay;
	// a negative value disables it.
	SettleDelay time.Duration
	Logger      *slog.Logger
	Tracer      trace.Tracer
}

// Result summarises one Play call.
type Result struct {
	Dispatched int
	Skipped    int
	Cancelled  bool
	Elapsed    time.Duration
}

// Player replays timelines. One Play may run at a time per player; Stop may be called
// from any goroutine.
type Player struct {
	inj    input.Injector
	settle time.Duration
	logger *slog.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	stopped bool
	wake    chan struct{}
}

// New constructs a player dispatching to inj.
func New(inj input.Injector, opts Options) *Player {
	settle := opts.SettleDelay
	switch {
	case settle == 0:
		settle = DefaultSettleDelay
	case settle < 0:
		settle = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Player{
		inj:    inj,
		settle: settle,
		logger: logger,
		tracer: tracer,
	}
}

// ValidateSpeed reports ErrInvalidSpeed for zero, negative, NaN or infinite factors.
func ValidateSpeed(speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	return nil
}

// Stop requests cancellation of the current replay. It is idempotent and never blocks.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	if p.wake != nil {
		close(p.wake)
	}
}

// Stopped reports whether Stop has been called since the last Play or Repeat began.
func (p *Player) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// arm clears the stop flag and returns the wake channel for a new replay.
func (p *Player) arm() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = false
	p.wake = make(chan struct{})
	return p.wake
}

// Play replays tl at the given speed and returns once every event has been dispatched,
// the replay was stopped, or an injector failed. Unsupported injections are skipped.
func (p *Player) Play(ctx context.Context, tl timeline.Timeline, speed float64) (Result, error) {
	if err := ValidateSpeed(speed); err != nil {
		return Result{}, err
	}
	if tl.IsEmpty() {
		return Result{}, nil
	}
	return p.play(ctx, tl, speed, p.arm())
}

// play runs one replay against an already armed wake channel. A Stop issued at any
// point after arming cancels it.
func (p *Player) play(ctx context.Context, tl timeline.Timeline, speed float64, wake <-chan struct{}) (Result, error) {
	if tl.IsEmpty() {
		return Result{}, nil
	}

	ctx, span := p.tracer.Start(ctx, "player.Play", trace.WithAttributes(
		attribute.Int("macro.events", tl.Len()),
		attribute.Float64("macro.speed", speed),
	))
	defer span.End()

	held := make(map[input.Key]struct{})
	start := time.Now()
	baseline := tl.Baseline()

	var res Result
	err := func() error {
		defer p.releaseHeld(held)
		for i := 0; i < tl.Len(); i++ {
			ev := tl.At(i)
			target := timeline.Seconds((ev.T - baseline) / speed)
			if wait := target - time.Since(start); wait > 0 {
				if !sleep(ctx, wake, wait) {
					res.Cancelled = true
					return nil
				}
			}
			if cancelled(ctx, wake) {
				res.Cancelled = true
				return nil
			}
			skipped, err := p.dispatch(ctx, wake, ev, held)
			if err != nil {
				return fmt.Errorf("dispatch event %d (%s): %w", i, ev.Kind, err)
			}
			if skipped {
				res.Skipped++
			} else {
				res.Dispatched++
			}
		}
		return nil
	}()
	res.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.Int("macro.dispatched", res.Dispatched),
		attribute.Int("macro.skipped", res.Skipped),
		attribute.Bool("macro.cancelled", res.Cancelled),
	)
	if res.Skipped > 0 {
		p.logger.Warn("unsupported input actions skipped", "skipped", res.Skipped, "events", tl.Len())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("playback aborted", "error", err, "dispatched", res.Dispatched)
		return res, err
	}
	p.logger.Debug("playback finished", "dispatched", res.Dispatched, "cancelled", res.Cancelled, "elapsed", res.Elapsed)
	return res, nil
}

// dispatch injects one event. It reports skipped when the injector rejected any step
// as unsupported.
func (p *Player) dispatch(ctx context.Context, wake <-chan struct{}, ev timeline.Event, held map[input.Key]struct{}) (bool, error) {
	skipped := false
	step := func(err error) error {
		if err == nil {
			return nil
		}
		if input.IsUnsupported(err) {
			p.logger.Debug("input action unsupported", "event", ev.String(), "error", err)
			skipped = true
			return nil
		}
		return err
	}

	switch ev.Kind {
	case timeline.KindClick:
		if err := step(p.inj.MovePointer(ev.X, ev.Y)); err != nil {
			return skipped, err
		}
		p.settleWait(ctx, wake)
		if ev.Pressed {
			return skipped, step(p.inj.PressButton(ev.Button))
		}
		return skipped, step(p.inj.ReleaseButton(ev.Button))

	case timeline.KindScroll:
		if err := step(p.inj.MovePointer(ev.X, ev.Y)); err != nil {
			return skipped, err
		}
		p.settleWait(ctx, wake)
		return skipped, step(p.inj.Scroll(ev.DX, ev.DY))

	case timeline.KindKey:
		key := input.ResolveKey(ev.Key)
		if ev.Pressed {
			err := p.inj.PressKey(key)
			if err == nil {
				held[key] = struct{}{}
			}
			return skipped, step(err)
		}
		delete(held, key)
		return skipped, step(p.inj.ReleaseKey(key))
	}
	return false, fmt.Errorf("%w: unknown kind %q", timeline.ErrInvalidEvent, ev.Kind)
}

// settleWait pauses after a pointer move. A stop during the pause still lets the
// current event complete.
func (p *Player) settleWait(ctx context.Context, wake <-chan struct{}) {
	if p.settle > 0 {
		sleep(ctx, wake, p.settle)
	}
}

func (p *Player) releaseHeld(held map[input.Key]struct{}) {
	for key := range held {
		if err := p.inj.ReleaseKey(key); err != nil && !input.IsUnsupported(err) {
			p.logger.Warn("release held key", "key", key.String(), "error", err)
		}
		delete(held, key)
	}
}

// sleep waits for d and reports false if woken early by wake or ctx.
func sleep(ctx context.Context, wake <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-wake:
		return false
	case <-ctx.Done():
		return false
	}
}

func cancelled(ctx context.Context, wake <-chan struct{}) bool {
	select {
	case <-wake:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
