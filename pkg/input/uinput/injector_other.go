//go:build !linux

package uinput

import (
	"github.com/offlinefirst/macroreplay/pkg/input"
)

// Injector is unavailable off Linux.
type Injector struct{}

var _ input.Injector = (*Injector)(nil)

// Open always fails with an error matching errors.ErrUnsupported.
func Open(Options) (*Injector, error) {
	return nil, input.Unsupported("uinput injection requires linux")
}

func (*Injector) Close() error { return nil }

func (*Injector) MovePointer(int, int) error { return input.Unsupported("move pointer") }

func (*Injector) PressButton(b string) error { return input.Unsupported("press button %q", b) }

func (*Injector) ReleaseButton(b string) error { return input.Unsupported("release button %q", b) }

func (*Injector) Scroll(int, int) error { return input.Unsupported("scroll") }

func (*Injector) PressKey(k input.Key) error { return input.Unsupported("press key %s", k) }

func (*Injector) ReleaseKey(k input.Key) error { return input.Unsupported("release key %s", k) }
