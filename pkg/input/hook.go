package input

import "github.com/offlinefirst/macroreplay/pkg/timeline"

// PointerCallbacks receives pointer button and wheel activity. Either field may be nil.
type PointerCallbacks struct {
	OnClick  func(x, y int, button string, pressed bool)
	OnScroll func(x, y, dx, dy int)
}

// KeyboardCallbacks receives key transitions. Either field may be nil.
type KeyboardCallbacks struct {
	OnPress   func(key timeline.RawKey)
	OnRelease func(key timeline.RawKey)
}

// Listener is a running registration on a hook.
type Listener interface {
	// Stop detaches the callbacks. No callback is delivered after Stop returns.
	// Stop is idempotent.
	Stop()
}

// PointerHook delivers pointer events from the host.
type PointerHook interface {
	ListenPointer(cb PointerCallbacks) (Listener, error)
}

// KeyboardHook delivers keyboard events from the host.
type KeyboardHook interface {
	ListenKeyboard(cb KeyboardCallbacks) (Listener, error)
}

// ListenerFunc adapts a function literal to the Listener interface.
type ListenerFunc func()

// Stop calls the underlying function.
func (f ListenerFunc) Stop() { f() }
