package session

import (
	"context"
	"sync"
	"time"
)

// State is the session activity.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePlaying   State = "playing"
)

// Transition is one entry in the controller timeline.
type Transition struct {
	From   State     `json:"from"`
	To     State     `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
}

// Controller tracks the session state and wakes waiters on every change.
type Controller struct {
	mu      sync.Mutex
	state   State
	history []Transition
	changed chan struct{}
	clock   func() time.Time
}

// NewController constructs an idle controller.
func NewController(clock func() time.Time) *Controller {
	if clock == nil {
		clock = time.Now
	}
	return &Controller{state: StateIdle, changed: make(chan struct{}), clock: clock}
}

// Transition moves to state and returns the previous one. Transitions to the current
// state are not journalled.
func (c *Controller) Transition(to State, reason string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	from := c.state
	if from == to {
		return from
	}
	c.state = to
	c.history = append(c.history, Transition{From: from, To: to, At: c.clock().UTC(), Reason: reason})
	close(c.changed)
	c.changed = make(chan struct{})
	return from
}

// State reports the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Timeline returns a copy of the recorded transitions.
func (c *Controller) Timeline() []Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Transition, len(c.history))
	copy(out, c.history)
	return out
}

// WaitIdle blocks until the controller is idle or ctx is done.
func (c *Controller) WaitIdle(ctx context.Context) error {
	for {
		c.mu.Lock()
		state := c.state
		changed := c.changed
		c.mu.Unlock()

		if state == StateIdle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}
