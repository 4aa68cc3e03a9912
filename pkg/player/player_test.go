package player

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/offlinefirst/macroreplay/pkg/input"
	"github.com/offlinefirst/macroreplay/pkg/input/virtual"
	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

func newTestPlayer() (*Player, *virtual.Device) {
	dev := virtual.New(virtual.Options{})
	return New(dev, Options{SettleDelay: -1}), dev
}

func kinds(actions []virtual.Action) []virtual.ActionKind {
	out := make([]virtual.ActionKind, len(actions))
	for i, a := range actions {
		out[i] = a.Kind
	}
	return out
}

func TestPlayEmptyTimelineReturnsImmediately(t *testing.T) {
	p, dev := newTestPlayer()
	start := time.Now()
	res, err := p.Play(context.Background(), timeline.Timeline{}, 1)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("empty play took %v", elapsed)
	}
	if res.Dispatched != 0 || len(dev.Actions()) != 0 {
		t.Fatalf("empty play dispatched actions: %+v", dev.Actions())
	}
}

func TestPlayRejectsInvalidSpeed(t *testing.T) {
	tl := timeline.New([]timeline.Event{timeline.KeyEvent(0, "a", true)})
	for _, speed := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		p, dev := newTestPlayer()
		if _, err := p.Play(context.Background(), tl, speed); !errors.Is(err, ErrInvalidSpeed) {
			t.Fatalf("speed %v: expected ErrInvalidSpeed, got %v", speed, err)
		}
		if len(dev.Actions()) != 0 {
			t.Fatalf("speed %v: actions dispatched before validation", speed)
		}
	}
}

func TestPlayDispatchesInOrder(t *testing.T) {
	p, dev := newTestPlayer()
	tl := timeline.New([]timeline.Event{
		timeline.Click(1.0, 10, 20, "left", true),
		timeline.Click(1.0, 10, 20, "left", false),
		timeline.Scroll(1.0, 30, 40, 0, -2),
		timeline.KeyEvent(1.0, "enter", true),
		timeline.KeyEvent(1.0, "enter", false),
	})

	res, err := p.Play(context.Background(), tl, 1)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if res.Dispatched != 5 || res.Skipped != 0 || res.Cancelled {
		t.Fatalf("unexpected result: %+v", res)
	}

	actions := dev.Actions()
	want := []virtual.ActionKind{
		virtual.ActionMove, virtual.ActionPressButton,
		virtual.ActionMove, virtual.ActionReleaseButton,
		virtual.ActionMove, virtual.ActionScroll,
		virtual.ActionPressKey, virtual.ActionReleaseKey,
	}
	got := kinds(actions)
	if len(got) != len(want) {
		t.Fatalf("expected %d actions, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("action %d = %s, want %s (all: %v)", i, got[i], want[i], got)
		}
	}
	if actions[1].X != 10 || actions[1].Y != 20 || actions[1].Button != "left" {
		t.Fatalf("press should land at recorded position: %+v", actions[1])
	}
	if actions[5].DY != -2 || actions[5].X != 30 {
		t.Fatalf("unexpected scroll action: %+v", actions[5])
	}
	if actions[6].Key != (input.Key{Name: "enter"}) {
		t.Fatalf("unexpected key: %#v", actions[6].Key)
	}
}

func TestPlayHonoursSpeed(t *testing.T) {
	p, _ := newTestPlayer()
	tl := timeline.New([]timeline.Event{
		timeline.KeyEvent(0, "a", true),
		timeline.KeyEvent(0.5, "a", false),
	})

	start := time.Now()
	if _, err := p.Play(context.Background(), tl, 2.0); err != nil {
		t.Fatalf("play: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 50*time.Millisecond || elapsed > 400*time.Millisecond {
		t.Fatalf("speed 2.0 over a 0.5s gap took %v", elapsed)
	}
}

func TestPlayNonZeroBaseline(t *testing.T) {
	p, _ := newTestPlayer()
	tl := timeline.New([]timeline.Event{
		timeline.KeyEvent(30, "a", true),
		timeline.KeyEvent(30.05, "a", false),
	})
	start := time.Now()
	if _, err := p.Play(context.Background(), tl, 1); err != nil {
		t.Fatalf("play: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("baseline offset should not be waited out: %v", elapsed)
	}
}

func TestStopWakesLongWait(t *testing.T) {
	p, dev := newTestPlayer()
	tl := timeline.New([]timeline.Event{
		timeline.KeyEvent(0, "a", true),
		timeline.KeyEvent(10, "a", false),
		timeline.KeyEvent(10, "b", true),
	})

	timer := time.AfterFunc(50*time.Millisecond, p.Stop)
	defer timer.Stop()

	start := time.Now()
	res, err := p.Play(context.Background(), tl, 1)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("stop took %v to take effect", elapsed)
	}
	if !res.Cancelled || !p.Stopped() {
		t.Fatalf("expected cancelled result, got %+v", res)
	}

	actions := dev.Actions()
	if len(actions) != 2 {
		t.Fatalf("expected press + held-key release, got %v", kinds(actions))
	}
	if actions[0].Kind != virtual.ActionPressKey || actions[1].Kind != virtual.ActionReleaseKey {
		t.Fatalf("unexpected actions: %v", kinds(actions))
	}
	if actions[1].Key != (input.Key{Char: 'a'}) {
		t.Fatalf("held key not released: %#v", actions[1].Key)
	}
}

func TestContextCancelReleasesHeldKeys(t *testing.T) {
	p, dev := newTestPlayer()
	tl := timeline.New([]timeline.Event{
		timeline.KeyEvent(0, "shift", true),
		timeline.KeyEvent(0, "x", true),
		timeline.KeyEvent(5, "x", false),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := p.Play(ctx, tl, 1)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !res.Cancelled {
		t.Fatalf("expected cancellation, got %+v", res)
	}
	released := map[input.Key]bool{}
	for _, a := range dev.Actions() {
		if a.Kind == virtual.ActionReleaseKey {
			released[a.Key] = true
		}
	}
	if !released[input.Key{Name: "shift"}] || !released[input.Key{Char: 'x'}] {
		t.Fatalf("held keys not released: %v", released)
	}
}

func TestStopBeforePlayIsCleared(t *testing.T) {
	p, dev := newTestPlayer()
	p.Stop()
	p.Stop()
	if !p.Stopped() {
		t.Fatalf("expected stopped flag")
	}
	tl := timeline.New([]timeline.Event{timeline.KeyEvent(0, "a", true), timeline.KeyEvent(0, "a", false)})
	res, err := p.Play(context.Background(), tl, 1)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if res.Cancelled || res.Dispatched != 2 || len(dev.Actions()) != 2 {
		t.Fatalf("stale stop should not cancel a new play: %+v", res)
	}
	if p.Stopped() {
		t.Fatalf("flag should be cleared by Play")
	}
}

func TestUnsupportedActionsAreSkipped(t *testing.T) {
	p, dev := newTestPlayer()
	dev.Reject(virtual.ActionScroll)
	tl := timeline.New([]timeline.Event{
		timeline.Scroll(0, 5, 5, 0, 1),
		timeline.KeyEvent(0, "a", true),
		timeline.KeyEvent(0, "a", false),
	})

	res, err := p.Play(context.Background(), tl, 1)
	if err != nil {
		t.Fatalf("unsupported action should not abort: %v", err)
	}
	if res.Skipped != 1 || res.Dispatched != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDispatchFailureAbortsAndReleases(t *testing.T) {
	p, dev := newTestPlayer()
	boom := errors.New("device gone")
	dev.Fail(virtual.ActionPressButton, boom)
	tl := timeline.New([]timeline.Event{
		timeline.KeyEvent(0, "ctrl", true),
		timeline.Click(0, 1, 1, "left", true),
		timeline.KeyEvent(0, "ctrl", false),
	})

	res, err := p.Play(context.Background(), tl, 1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected device failure, got %v", err)
	}
	if res.Dispatched != 1 {
		t.Fatalf("expected 1 dispatched event before failure, got %+v", res)
	}
	actions := dev.Actions()
	last := actions[len(actions)-1]
	if last.Kind != virtual.ActionReleaseKey || last.Key != (input.Key{Name: "ctrl"}) {
		t.Fatalf("held key not released after failure: %v", kinds(actions))
	}
}

func TestCatchUpDoesNotSleep(t *testing.T) {
	p, dev := newTestPlayer()
	events := make([]timeline.Event, 0, 200)
	for i := 0; i < 100; i++ {
		events = append(events, timeline.KeyEvent(0.001*float64(i), "a", true), timeline.KeyEvent(0.001*float64(i), "a", false))
	}
	start := time.Now()
	if _, err := p.Play(context.Background(), timeline.New(events), 100); err != nil {
		t.Fatalf("play: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("dense timeline took %v", elapsed)
	}
	if len(dev.Actions()) != 200 {
		t.Fatalf("expected 200 actions, got %d", len(dev.Actions()))
	}
}

func TestSettleDelayDefaults(t *testing.T) {
	if p := New(virtual.New(virtual.Options{}), Options{}); p.settle != DefaultSettleDelay {
		t.Fatalf("expected default settle delay, got %v", p.settle)
	}
	if p := New(virtual.New(virtual.Options{}), Options{SettleDelay: -1}); p.settle != 0 {
		t.Fatalf("expected disabled settle delay, got %v", p.settle)
	}
}
