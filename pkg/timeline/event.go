package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Kind discriminates the event variants.
type Kind string

const (
	KindClick  Kind = "click"
	KindScroll Kind = "scroll"
	KindKey    Kind = "key"
)

// ErrInvalidEvent reports an event record that cannot be decoded into a known variant.
var ErrInvalidEvent = errors.New("invalid event")

// Event is a single captured input action. Kind selects which fields are meaningful:
// clicks use X, Y, Button and Pressed; scrolls use X, Y, DX and DY; keys use Key and Pressed.
type Event struct {
	Kind    Kind
	T       float64
	X       int
	Y       int
	Button  string
	Pressed bool
	DX      int
	DY      int
	Key     string
}

// Click builds a pointer button transition.
func Click(t float64, x, y int, button string, pressed bool) Event {
	return Event{Kind: KindClick, T: t, X: x, Y: y, Button: button, Pressed: pressed}
}

// Scroll builds a wheel movement at the given pointer position.
func Scroll(t float64, x, y, dx, dy int) Event {
	return Event{Kind: KindScroll, T: t, X: x, Y: y, DX: dx, DY: dy}
}

// KeyEvent builds a key press or release for a canonical key identifier.
func KeyEvent(t float64, key string, pressed bool) Event {
	return Event{Kind: KindKey, T: t, Key: key, Pressed: pressed}
}

// Validate checks the fields required by the event's variant.
func (e Event) Validate() error {
	if math.IsNaN(e.T) || math.IsInf(e.T, 0) || e.T < 0 {
		return fmt.Errorf("%w: offset %v out of range", ErrInvalidEvent, e.T)
	}
	switch e.Kind {
	case KindClick:
		if e.Button == "" {
			return fmt.Errorf("%w: click without button", ErrInvalidEvent)
		}
	case KindScroll:
	case KindKey:
		if e.Key == "" {
			return fmt.Errorf("%w: key event without key", ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Kind)
	}
	return nil
}

// String renders a compact description used in logs and the show command.
func (e Event) String() string {
	switch e.Kind {
	case KindClick:
		return fmt.Sprintf("%8.4fs click  %s %s at (%d,%d)", e.T, e.Button, transition(e.Pressed), e.X, e.Y)
	case KindScroll:
		return fmt.Sprintf("%8.4fs scroll (%+d,%+d) at (%d,%d)", e.T, e.DX, e.DY, e.X, e.Y)
	case KindKey:
		return fmt.Sprintf("%8.4fs key    %s %s", e.T, e.Key, transition(e.Pressed))
	default:
		return fmt.Sprintf("%8.4fs %s", e.T, e.Kind)
	}
}

func transition(pressed bool) string {
	if pressed {
		return "down"
	}
	return "up"
}

// wireEvent is the persisted record shape. Pointer fields distinguish missing values
// from zero values so corrupt records are rejected instead of silently defaulted.
type wireEvent struct {
	Type    Kind     `json:"type"`
	X       *int     `json:"x,omitempty"`
	Y       *int     `json:"y,omitempty"`
	Button  *string  `json:"button,omitempty"`
	Pressed *bool    `json:"pressed,omitempty"`
	DX      *int     `json:"dx,omitempty"`
	DY      *int     `json:"dy,omitempty"`
	Key     *string  `json:"key,omitempty"`
	T       *float64 `json:"t"`
}

// MarshalJSON encodes the event with a string type discriminator and only the
// fields of its variant.
func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{Type: e.Kind, T: &e.T}
	switch e.Kind {
	case KindClick:
		w.X, w.Y, w.Button, w.Pressed = &e.X, &e.Y, &e.Button, &e.Pressed
	case KindScroll:
		w.X, w.Y, w.DX, w.DY = &e.X, &e.Y, &e.DX, &e.DY
	case KindKey:
		w.Key, w.Pressed = &e.Key, &e.Pressed
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a persisted event record, rejecting unknown types and
// records missing a field of their variant.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if w.T == nil {
		return fmt.Errorf("%w: missing t", ErrInvalidEvent)
	}

	out := Event{Kind: w.Type, T: *w.T}
	switch w.Type {
	case KindClick:
		if w.X == nil || w.Y == nil || w.Button == nil || w.Pressed == nil {
			return fmt.Errorf("%w: click requires x, y, button and pressed", ErrInvalidEvent)
		}
		out.X, out.Y, out.Button, out.Pressed = *w.X, *w.Y, *w.Button, *w.Pressed
	case KindScroll:
		if w.X == nil || w.Y == nil || w.DX == nil || w.DY == nil {
			return fmt.Errorf("%w: scroll requires x, y, dx and dy", ErrInvalidEvent)
		}
		out.X, out.Y, out.DX, out.DY = *w.X, *w.Y, *w.DX, *w.DY
	case KindKey:
		if w.Key == nil || w.Pressed == nil {
			return fmt.Errorf("%w: key requires key and pressed", ErrInvalidEvent)
		}
		out.Key, out.Pressed = *w.Key, *w.Pressed
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, w.Type)
	}

	if err := out.Validate(); err != nil {
		return err
	}
	*e = out
	return nil
}
