package timeline

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Precision is the number of decimal digits kept on event offsets.
const Precision = 4

// Timeline is an ordered, immutable sequence of captured events. The zero value is
// an empty timeline.
type Timeline struct {
	events []Event
}

// New copies events into a timeline. The caller keeps ownership of the slice.
func New(events []Event) Timeline {
	if len(events) == 0 {
		return Timeline{}
	}
	owned := make([]Event, len(events))
	copy(owned, events)
	return Timeline{events: owned}
}

// Len returns the number of events.
func (tl Timeline) Len() int { return len(tl.events) }

// IsEmpty reports whether the timeline holds no events.
func (tl Timeline) IsEmpty() bool { return len(tl.events) == 0 }

// At returns the i-th event.
func (tl Timeline) At(i int) Event { return tl.events[i] }

// Events returns a copy of the events in capture order.
func (tl Timeline) Events() []Event {
	out := make([]Event, len(tl.events))
	copy(out, tl.events)
	return out
}

// Baseline returns the offset of the first event, or zero for an empty timeline.
func (tl Timeline) Baseline() float64 {
	if len(tl.events) == 0 {
		return 0
	}
	return tl.events[0].T
}

// Duration is the span between the first and last events at normal speed.
func (tl Timeline) Duration() time.Duration {
	if len(tl.events) < 2 {
		return 0
	}
	return Seconds(tl.events[len(tl.events)-1].T - tl.events[0].T)
}

// Validate checks every event and that offsets never decrease.
func (tl Timeline) Validate() error {
	prev := math.Inf(-1)
	for i, ev := range tl.events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if ev.T < prev {
			return fmt.Errorf("event %d: %w: offset %.4f precedes %.4f", i, ErrInvalidEvent, ev.T, prev)
		}
		prev = ev.T
	}
	return nil
}

// Equal reports whether two timelines hold the same events field for field.
func (tl Timeline) Equal(other Timeline) bool {
	if len(tl.events) != len(other.events) {
		return false
	}
	for i := range tl.events {
		if tl.events[i] != other.events[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the timeline as an array of event records.
func (tl Timeline) MarshalJSON() ([]byte, error) {
	if tl.events == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(tl.events)
}

// UnmarshalJSON decodes an array of event records.
func (tl *Timeline) UnmarshalJSON(data []byte) error {
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return err
	}
	tl.events = events
	if len(events) == 0 {
		tl.events = nil
	}
	return nil
}

// Offset converts an elapsed duration to seconds rounded to Precision digits.
func Offset(elapsed time.Duration) float64 {
	scale := math.Pow10(Precision)
	return math.Round(elapsed.Seconds()*scale) / scale
}

// Seconds converts a floating point offset back into a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
