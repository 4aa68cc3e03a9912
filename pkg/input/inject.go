package input

import (
	"errors"
	"fmt"
)

// Pointer button identifiers used in recorded timelines.
const (
	ButtonLeft   = "left"
	ButtonRight  = "right"
	ButtonMiddle = "middle"
)

// Injector synthesises input on the live devices. Every method reports an action the
// platform cannot perform with an error matching errors.ErrUnsupported; callers treat
// that outcome as skip-and-continue. Any other error is a device failure.
type Injector interface {
	MovePointer(x, y int) error
	PressButton(button string) error
	ReleaseButton(button string) error
	Scroll(dx, dy int) error
	PressKey(key Key) error
	ReleaseKey(key Key) error
}

// Unsupported builds an error matching errors.ErrUnsupported that names the rejected action.
func Unsupported(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errors.ErrUnsupported)
}

// IsUnsupported reports whether err marks an action the platform rejected.
func IsUnsupported(err error) bool {
	return errors.Is(err, errors.ErrUnsupported)
}
