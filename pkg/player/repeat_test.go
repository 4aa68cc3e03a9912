package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/offlinefirst/macroreplay/pkg/input/virtual"
	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

func TestRepeatRunsEachIteration(t *testing.T) {
	p, dev := newTestPlayer()
	tl := timeline.New([]timeline.Event{timeline.KeyEvent(0, "a", true), timeline.KeyEvent(0, "a", false)})

	var seen [][2]int
	n, err := Repeat(context.Background(), p, tl, 1, 3, nil, func(i, total int) {
		seen = append(seen, [2]int{i, total})
	})
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if n != 3 || len(dev.Actions()) != 6 {
		t.Fatalf("expected 3 iterations / 6 actions, got %d / %d", n, len(dev.Actions()))
	}
	if len(seen) != 3 || seen[0] != [2]int{1, 3} || seen[2] != [2]int{3, 3} {
		t.Fatalf("unexpected iteration callbacks: %v", seen)
	}
}

func TestRepeatCountBelowOnePlaysOnce(t *testing.T) {
	p, _ := newTestPlayer()
	tl := timeline.New([]timeline.Event{timeline.KeyEvent(0, "a", true)})
	n, err := Repeat(context.Background(), p, tl, 1, 0, nil, nil)
	if err != nil || n != 1 {
		t.Fatalf("expected a single iteration, got %d (%v)", n, err)
	}
}

func TestRepeatHonoursActiveCheck(t *testing.T) {
	p, _ := newTestPlayer()
	tl := timeline.New([]timeline.Event{timeline.KeyEvent(0, "a", true)})
	calls := 0
	n, err := Repeat(context.Background(), p, tl, 1, 5, func() bool {
		calls++
		return calls <= 2
	}, nil)
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 iterations before inactive, got %d", n)
	}
}

func TestRepeatStopsWhenPlayerStopped(t *testing.T) {
	p, _ := newTestPlayer()
	tl := timeline.New([]timeline.Event{
		timeline.KeyEvent(0, "a", true),
		timeline.KeyEvent(5, "a", false),
	})
	timer := time.AfterFunc(50*time.Millisecond, p.Stop)
	defer timer.Stop()

	start := time.Now()
	n, err := Repeat(context.Background(), p, tl, 1, 10, nil, nil)
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if n != 0 {
		t.Fatalf("stopped iteration should not count, got %d", n)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("repeat ignored stop for %v", elapsed)
	}
}

func TestRepeatStopFromIterationCallback(t *testing.T) {
	p, dev := newTestPlayer()
	tl := timeline.New([]timeline.Event{
		timeline.KeyEvent(0, "a", true),
		timeline.KeyEvent(1, "a", false),
	})

	active := true
	start := time.Now()
	n, err := Repeat(context.Background(), p, tl, 1, 3, func() bool { return active }, func(i, total int) {
		if i == 1 {
			active = false
			p.Stop()
		}
	})
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if n != 0 {
		t.Fatalf("stopped iteration should not count, got %d", n)
	}
	if got := len(dev.Actions()); got != 0 {
		t.Fatalf("expected no actions after stop, got %d", got)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("repeat ignored stop for %v", elapsed)
	}
}

func TestRepeatClearsStaleStop(t *testing.T) {
	p, dev := newTestPlayer()
	p.Stop()
	tl := timeline.New([]timeline.Event{timeline.KeyEvent(0, "a", true), timeline.KeyEvent(0, "a", false)})
	n, err := Repeat(context.Background(), p, tl, 1, 2, nil, nil)
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if n != 2 || len(dev.Actions()) != 4 {
		t.Fatalf("stale stop should not cancel a new run, got %d iterations / %d actions", n, len(dev.Actions()))
	}
}

func TestRepeatPropagatesErrors(t *testing.T) {
	p, dev := newTestPlayer()
	boom := errors.New("boom")
	dev.Fail(virtual.ActionPressKey, boom)
	tl := timeline.New([]timeline.Event{timeline.KeyEvent(0, "a", true)})
	if _, err := Repeat(context.Background(), p, tl, 1, 2, nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected injector failure, got %v", err)
	}
	if _, err := Repeat(context.Background(), p, tl, 0, 2, nil, nil); !errors.Is(err, ErrInvalidSpeed) {
		t.Fatalf("expected ErrInvalidSpeed, got %v", err)
	}
}
