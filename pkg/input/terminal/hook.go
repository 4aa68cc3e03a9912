// Package terminal captures pointer and keyboard activity from the controlling
// terminal through tcell. Terminals report key presses only, so every key is
// delivered as a press immediately followed by its release; modifier chords are
// bracketed by modifier press and release events. Mouse button state is diffed
// between events to produce press and release transitions.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/offlinefirst/macroreplay/pkg/input"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("terminal hook closed")

// Options controls coordinate scaling and logging.
type Options struct {
	// CellWidth and CellHeight convert cell coordinates to pointer coordinates; the
	// centre of the cell is reported. Zero means one unit per cell.
	CellWidth  int
	CellHeight int
	Logger     *slog.Logger
}

// Hook turns tcell events into input hook callbacks.
type Hook struct {
	*input.Dispatcher

	screen tcell.Screen
	cellW  int
	cellH  int
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
	buttons tcell.ButtonMask
}

var (
	_ input.PointerHook  = (*Hook)(nil)
	_ input.KeyboardHook = (*Hook)(nil)
)

// Open creates a hook on the process terminal.
func Open(opts Options) (*Hook, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	return New(screen, opts), nil
}

// New wraps an uninitialised screen.
func New(screen tcell.Screen, opts Options) *Hook {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cellW, cellH := opts.CellWidth, opts.CellHeight
	if cellW <= 0 {
		cellW = 1
	}
	if cellH <= 0 {
		cellH = 1
	}
	return &Hook{
		Dispatcher: input.NewDispatcher(),
		screen:     screen,
		cellW:      cellW,
		cellH:      cellH,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Screen exposes the underlying screen for status rendering.
func (h *Hook) Screen() tcell.Screen { return h.screen }

// Start initialises the screen, enables mouse reporting and begins polling events.
func (h *Hook) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if h.started {
		return nil
	}
	if err := h.screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	h.screen.EnableMouse()
	h.started = true
	w, ht := h.screen.Size()
	h.logger.Debug("terminal hook started", "cols", w, "rows", ht, "cell_width", h.cellW, "cell_height", h.cellH)
	go h.loop()
	return nil
}

// Close restores the terminal and waits for the poll loop to exit.
func (h *Hook) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	started := h.started
	h.mu.Unlock()

	if !started {
		return
	}
	h.screen.Fini()
	<-h.done
	h.logger.Debug("terminal hook closed")
}

func (h *Hook) loop() {
	defer close(h.done)
	for {
		ev := h.screen.PollEvent()
		if ev == nil {
			return
		}
		h.handle(ev)
	}
}

func (h *Hook) handle(ev tcell.Event) {
	switch e := ev.(type) {
	case *tcell.EventKey:
		h.handleKey(e)
	case *tcell.EventMouse:
		h.handleMouse(e)
	}
}

func (h *Hook) handleKey(e *tcell.EventKey) {
	key := translateKey(e)
	mods := modifierKeys(e)
	for _, m := range mods {
		h.Press(m)
	}
	h.Press(key)
	h.Release(key)
	for i := len(mods) - 1; i >= 0; i-- {
		h.Release(mods[i])
	}
}

func (h *Hook) handleMouse(e *tcell.EventMouse) {
	cx, cy := e.Position()
	x, y := cx*h.cellW+h.cellW/2, cy*h.cellH+h.cellH/2
	buttons := e.Buttons()

	h.mu.Lock()
	prev := h.buttons
	h.buttons = buttons & (tcell.ButtonPrimary | tcell.ButtonSecondary | tcell.ButtonMiddle)
	h.mu.Unlock()

	for _, b := range []struct {
		mask tcell.ButtonMask
		name string
	}{
		{tcell.ButtonPrimary, input.ButtonLeft},
		{tcell.ButtonSecondary, input.ButtonRight},
		{tcell.ButtonMiddle, input.ButtonMiddle},
	} {
		was, is := prev&b.mask != 0, buttons&b.mask != 0
		if was != is {
			h.Click(x, y, b.name, is)
		}
	}

	dx, dy := wheelDelta(buttons)
	if dx != 0 || dy != 0 {
		h.Wheel(x, y, dx, dy)
	}
}

// wheelDelta follows the recorded convention: positive dy scrolls up, positive dx
// scrolls right.
func wheelDelta(b tcell.ButtonMask) (dx, dy int) {
	if b&tcell.WheelUp != 0 {
		dy++
	}
	if b&tcell.WheelDown != 0 {
		dy--
	}
	if b&tcell.WheelLeft != 0 {
		dx--
	}
	if b&tcell.WheelRight != 0 {
		dx++
	}
	return dx, dy
}
