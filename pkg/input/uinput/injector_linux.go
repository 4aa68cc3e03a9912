//go:build linux

package uinput

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	uidev "github.com/bendahl/uinput"

	"github.com/offlinefirst/macroreplay/pkg/input"
)

type keyboardDevice interface {
	KeyDown(key int) error
	KeyUp(key int) error
	io.Closer
}

type touchpadDevice interface {
	MoveTo(x, y int32) error
	LeftPress() error
	LeftRelease() error
	RightPress() error
	RightRelease() error
	io.Closer
}

type mouseDevice interface {
	MiddlePress() error
	MiddleRelease() error
	Wheel(horizontal bool, delta int32) error
	io.Closer
}

// Injector drives the virtual devices.
type Injector struct {
	mu     sync.Mutex
	kb     keyboardDevice
	pad    touchpadDevice
	mouse  mouseDevice
	width  int
	height int
	logger *slog.Logger
}

var _ input.Injector = (*Injector)(nil)

// Open creates the virtual keyboard, touchpad and mouse.
func Open(opts Options) (*Injector, error) {
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("uinput: screen size must be positive, got %dx%d", opts.Width, opts.Height)
	}

	kb, err := uidev.CreateKeyboard(path, []byte("macrorec-keyboard"))
	if err != nil {
		return nil, fmt.Errorf("create keyboard: %w", err)
	}
	pad, err := uidev.CreateTouchPad(path, []byte("macrorec-touchpad"), 0, int32(opts.Width-1), 0, int32(opts.Height-1))
	if err != nil {
		kb.Close()
		return nil, fmt.Errorf("create touchpad: %w", err)
	}
	mouse, err := uidev.CreateMouse(path, []byte("macrorec-mouse"))
	if err != nil {
		pad.Close()
		kb.Close()
		return nil, fmt.Errorf("create mouse: %w", err)
	}
	inj := newInjector(kb, pad, mouse, opts.Width, opts.Height, opts.Logger)
	inj.logger.Info("uinput devices created", "path", path, "width", opts.Width, "height", opts.Height)
	return inj, nil
}

func newInjector(kb keyboardDevice, pad touchpadDevice, mouse mouseDevice, width, height int, logger *slog.Logger) *Injector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Injector{kb: kb, pad: pad, mouse: mouse, width: width, height: height, logger: logger}
}

// Close destroys the virtual devices.
func (i *Injector) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return errors.Join(i.mouse.Close(), i.pad.Close(), i.kb.Close())
}

// MovePointer positions the pointer, clamped to the configured screen.
func (i *Injector) MovePointer(x, y int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	x = clamp(x, 0, i.width-1)
	y = clamp(y, 0, i.height-1)
	return i.pad.MoveTo(int32(x), int32(y))
}

// PressButton presses a pointer button.
func (i *Injector) PressButton(button string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	switch button {
	case input.ButtonLeft:
		return i.pad.LeftPress()
	case input.ButtonRight:
		return i.pad.RightPress()
	case input.ButtonMiddle:
		return i.mouse.MiddlePress()
	}
	return input.Unsupported("press button %q", button)
}

// ReleaseButton releases a pointer button.
func (i *Injector) ReleaseButton(button string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	switch button {
	case input.ButtonLeft:
		return i.pad.LeftRelease()
	case input.ButtonRight:
		return i.pad.RightRelease()
	case input.ButtonMiddle:
		return i.mouse.MiddleRelease()
	}
	return input.Unsupported("release button %q", button)
}

// Scroll emits wheel notches. Positive dy scrolls up and positive dx scrolls right.
func (i *Injector) Scroll(dx, dy int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if dy != 0 {
		if err := i.mouse.Wheel(false, int32(dy)); err != nil {
			return err
		}
	}
	if dx != 0 {
		if err := i.mouse.Wheel(true, int32(dx)); err != nil {
			return err
		}
	}
	return nil
}

// PressKey presses a key, holding shift first when the character needs it.
func (i *Injector) PressKey(key input.Key) error {
	stroke, err := resolve(key)
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if stroke.shift {
		if err := i.kb.KeyDown(uidev.KeyLeftshift); err != nil {
			return err
		}
	}
	return i.kb.KeyDown(stroke.code)
}

// ReleaseKey releases a key and any shift PressKey added for it.
func (i *Injector) ReleaseKey(key input.Key) error {
	stroke, err := resolve(key)
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.kb.KeyUp(stroke.code); err != nil {
		return err
	}
	if stroke.shift {
		return i.kb.KeyUp(uidev.KeyLeftshift)
	}
	return nil
}

func resolve(key input.Key) (keyStroke, error) {
	if key.IsNamed() {
		code, ok := namedCodes[key.Name]
		if !ok {
			return keyStroke{}, input.Unsupported("key %q", key.Name)
		}
		return keyStroke{code: code}, nil
	}
	stroke, ok := charStroke(key.Char)
	if !ok {
		return keyStroke{}, input.Unsupported("character %q has no key code", key.Char)
	}
	return stroke, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
