// Package virtual provides an in-memory input device. It acts as both hook and
// injector: tests and dry runs fire synthetic hook events into it (Click, Wheel,
// Press and Release from the embedded dispatcher) and inspect the journal of
// injected actions. With loopback enabled, injected actions are also
// delivered to registered listeners.
package virtual

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/offlinefirst/macroreplay/pkg/input"
	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

// ActionKind names an injected action.
type ActionKind string

const (
	ActionMove          ActionKind = "move"
	ActionPressButton   ActionKind = "press_button"
	ActionReleaseButton ActionKind = "release_button"
	ActionScroll        ActionKind = "scroll"
	ActionPressKey      ActionKind = "press_key"
	ActionReleaseKey    ActionKind = "release_key"
)

// Action is one journalled injection.
type Action struct {
	Kind   ActionKind
	X, Y   int
	Button string
	DX, DY int
	Key    input.Key
	At     time.Time
}

// Options controls device behaviour.
type Options struct {
	Loopback bool
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Device is an in-memory pointer and keyboard.
type Device struct {
	*input.Dispatcher

	mu          sync.Mutex
	journal     []Action
	unsupported map[ActionKind]bool
	failures    map[ActionKind]error
	listenErr   error
	x, y        int

	loopback bool
	clock    func() time.Time
	logger   *slog.Logger
}

// New constructs an idle device.
func New(opts Options) *Device {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Device{
		Dispatcher:  input.NewDispatcher(),
		unsupported: make(map[ActionKind]bool),
		failures:    make(map[ActionKind]error),
		loopback:    opts.Loopback,
		clock:       clock,
		logger:      logger,
	}
}

var (
	_ input.PointerHook  = (*Device)(nil)
	_ input.KeyboardHook = (*Device)(nil)
	_ input.Injector     = (*Device)(nil)
)

// ListenPointer registers pointer callbacks unless FailListen is in effect.
func (d *Device) ListenPointer(cb input.PointerCallbacks) (input.Listener, error) {
	if err := d.listenFailure(); err != nil {
		return nil, err
	}
	return d.Dispatcher.ListenPointer(cb)
}

// ListenKeyboard registers keyboard callbacks unless FailListen is in effect.
func (d *Device) ListenKeyboard(cb input.KeyboardCallbacks) (input.Listener, error) {
	if err := d.listenFailure(); err != nil {
		return nil, err
	}
	return d.Dispatcher.ListenKeyboard(cb)
}

func (d *Device) listenFailure() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listenErr
}

// FailListen makes subsequent Listen calls fail with err. A nil err clears it.
func (d *Device) FailListen(err error) {
	d.mu.Lock()
	d.listenErr = err
	d.mu.Unlock()
}

// Reject makes the given action report errors.ErrUnsupported.
func (d *Device) Reject(kind ActionKind) {
	d.mu.Lock()
	d.unsupported[kind] = true
	d.mu.Unlock()
}

// Fail makes the given action return err. A nil err clears the failure.
func (d *Device) Fail(kind ActionKind, err error) {
	d.mu.Lock()
	if err == nil {
		delete(d.failures, kind)
	} else {
		d.failures[kind] = err
	}
	d.mu.Unlock()
}

// Actions returns a copy of the journal.
func (d *Device) Actions() []Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Action, len(d.journal))
	copy(out, d.journal)
	return out
}

// Reset clears the journal.
func (d *Device) Reset() {
	d.mu.Lock()
	d.journal = nil
	d.mu.Unlock()
}

// Position returns the last pointer position set through MovePointer.
func (d *Device) Position() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.x, d.y
}

func (d *Device) record(a Action) error {
	d.mu.Lock()
	if d.unsupported[a.Kind] {
		d.mu.Unlock()
		return input.Unsupported("virtual device %s", a.Kind)
	}
	if err := d.failures[a.Kind]; err != nil {
		d.mu.Unlock()
		return err
	}
	if a.Kind == ActionMove {
		d.x, d.y = a.X, a.Y
	} else {
		a.X, a.Y = d.x, d.y
	}
	a.At = d.clock()
	d.journal = append(d.journal, a)
	d.mu.Unlock()

	d.logger.Debug("virtual injection", "action", string(a.Kind), "x", a.X, "y", a.Y, "button", a.Button, "key", a.Key.String())
	return nil
}

// MovePointer implements input.Injector.
func (d *Device) MovePointer(x, y int) error {
	return d.record(Action{Kind: ActionMove, X: x, Y: y})
}

// PressButton implements input.Injector.
func (d *Device) PressButton(button string) error {
	if err := d.record(Action{Kind: ActionPressButton, Button: button}); err != nil {
		return err
	}
	if d.loopback {
		x, y := d.Position()
		d.Click(x, y, button, true)
	}
	return nil
}

// ReleaseButton implements input.Injector.
func (d *Device) ReleaseButton(button string) error {
	if err := d.record(Action{Kind: ActionReleaseButton, Button: button}); err != nil {
		return err
	}
	if d.loopback {
		x, y := d.Position()
		d.Click(x, y, button, false)
	}
	return nil
}

// Scroll implements input.Injector.
func (d *Device) Scroll(dx, dy int) error {
	if err := d.record(Action{Kind: ActionScroll, DX: dx, DY: dy}); err != nil {
		return err
	}
	if d.loopback {
		x, y := d.Position()
		d.Wheel(x, y, dx, dy)
	}
	return nil
}

// PressKey implements input.Injector.
func (d *Device) PressKey(key input.Key) error {
	if err := d.record(Action{Kind: ActionPressKey, Key: key}); err != nil {
		return err
	}
	if d.loopback {
		d.Press(rawKey(key))
	}
	return nil
}

// ReleaseKey implements input.Injector.
func (d *Device) ReleaseKey(key input.Key) error {
	if err := d.record(Action{Kind: ActionReleaseKey, Key: key}); err != nil {
		return err
	}
	if d.loopback {
		d.Release(rawKey(key))
	}
	return nil
}

func rawKey(k input.Key) timeline.RawKey {
	if k.IsNamed() {
		return timeline.NamedKey(k.Name)
	}
	return timeline.CharKey(k.Char)
}
