package input

import (
	"sync"

	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

// Dispatcher fans hook events out to registered callbacks. It implements PointerHook
// and KeyboardHook for backends that produce events from a single source.
//
// Callbacks run while a read lock is held and Listener.Stop takes the write lock, so
// no callback runs after Stop returns. A callback must therefore never stop its own
// listener synchronously.
type Dispatcher struct {
	delivery sync.RWMutex

	mu       sync.Mutex
	nextID   int
	pointer  map[int]PointerCallbacks
	keyboard map[int]KeyboardCallbacks
}

var (
	_ PointerHook  = (*Dispatcher)(nil)
	_ KeyboardHook = (*Dispatcher)(nil)
)

// NewDispatcher returns a dispatcher with no listeners.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		pointer:  make(map[int]PointerCallbacks),
		keyboard: make(map[int]KeyboardCallbacks),
	}
}

// ListenPointer registers pointer callbacks.
func (d *Dispatcher) ListenPointer(cb PointerCallbacks) (Listener, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.pointer[id] = cb
	return d.listener(func() { delete(d.pointer, id) }), nil
}

// ListenKeyboard registers keyboard callbacks.
func (d *Dispatcher) ListenKeyboard(cb KeyboardCallbacks) (Listener, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.keyboard[id] = cb
	return d.listener(func() { delete(d.keyboard, id) }), nil
}

func (d *Dispatcher) listener(remove func()) Listener {
	var once sync.Once
	return ListenerFunc(func() {
		once.Do(func() {
			d.delivery.Lock()
			d.mu.Lock()
			remove()
			d.mu.Unlock()
			d.delivery.Unlock()
		})
	})
}

// Listeners returns the number of active pointer and keyboard registrations.
func (d *Dispatcher) Listeners() (pointer, keyboard int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pointer), len(d.keyboard)
}

// Click delivers a button transition to pointer listeners.
func (d *Dispatcher) Click(x, y int, button string, pressed bool) {
	d.delivery.RLock()
	defer d.delivery.RUnlock()
	for _, cb := range d.pointerCallbacks() {
		if cb.OnClick != nil {
			cb.OnClick(x, y, button, pressed)
		}
	}
}

// Wheel delivers a scroll to pointer listeners.
func (d *Dispatcher) Wheel(x, y, dx, dy int) {
	d.delivery.RLock()
	defer d.delivery.RUnlock()
	for _, cb := range d.pointerCallbacks() {
		if cb.OnScroll != nil {
			cb.OnScroll(x, y, dx, dy)
		}
	}
}

// Press delivers a key press to keyboard listeners.
func (d *Dispatcher) Press(key timeline.RawKey) {
	d.delivery.RLock()
	defer d.delivery.RUnlock()
	for _, cb := range d.keyboardCallbacks() {
		if cb.OnPress != nil {
			cb.OnPress(key)
		}
	}
}

// Release delivers a key release to keyboard listeners.
func (d *Dispatcher) Release(key timeline.RawKey) {
	d.delivery.RLock()
	defer d.delivery.RUnlock()
	for _, cb := range d.keyboardCallbacks() {
		if cb.OnRelease != nil {
			cb.OnRelease(key)
		}
	}
}

func (d *Dispatcher) pointerCallbacks() []PointerCallbacks {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]PointerCallbacks, 0, len(d.pointer))
	for _, cb := range d.pointer {
		out = append(out, cb)
	}
	return out
}

func (d *Dispatcher) keyboardCallbacks() []KeyboardCallbacks {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]KeyboardCallbacks, 0, len(d.keyboard))
	for _, cb := range d.keyboard {
		out = append(out, cb)
	}
	return out
}
