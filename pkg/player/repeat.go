package player

import (
	"context"

	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

// Repeat plays tl count times in sequence (a count below one plays once). Before each
// iteration it consults active, when non-nil, and onIteration is told the 1-based
// iteration and total. It stops early when the player is stopped after Repeat began,
// ctx is done, or a play fails, and returns the number of completed iterations.
func Repeat(ctx context.Context, p *Player, tl timeline.Timeline, speed float64, count int, active func() bool, onIteration func(i, n int)) (int, error) {
	if err := ValidateSpeed(speed); err != nil {
		return 0, err
	}
	if count < 1 {
		count = 1
	}
	// Armed once for the whole run so a Stop between iterations is never cleared.
	wake := p.arm()
	completed := 0
	for i := 1; i <= count; i++ {
		if ctx.Err() != nil {
			break
		}
		if active != nil && !active() {
			break
		}
		if p.Stopped() {
			break
		}
		if onIteration != nil {
			onIteration(i, count)
		}
		res, err := p.play(ctx, tl, speed, wake)
		if err != nil {
			return completed, err
		}
		if res.Cancelled || p.Stopped() {
			break
		}
		completed++
	}
	return completed, nil
}
