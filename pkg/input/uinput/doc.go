// Package uinput injects synthetic input on Linux through the kernel uinput
// interface. Three virtual devices are created: a keyboard, an absolute touchpad
// for pointer positioning with left and right buttons, and a relative mouse for the
// middle button and the wheel. Other platforms get a stub whose Open reports
// errors.ErrUnsupported.
package uinput

import "log/slog"

// DefaultPath is the uinput device node.
const DefaultPath = "/dev/uinput"

// Options configures the virtual devices.
type Options struct {
	Path   string
	Width  int
	Height int
	Logger *slog.Logger
}
