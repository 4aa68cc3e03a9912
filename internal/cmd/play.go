package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/offlinefirst/macroreplay/pkg/input"
	"github.com/offlinefirst/macroreplay/pkg/player"
)

func newPlayCommand() command {
	return command{
		name:        "play",
		usage:       "[flags] <name>",
		description: "Replay a saved macro",
		configure: func(fs *flag.FlagSet) {
			fs.Float64("speed", 0, "Playback speed factor (default: playback.speed)")
			fs.Int("repeat", 0, "Number of times to play (default: playback.repeat_count)")
			fs.Bool("dry-run", false, "Journal actions on a virtual device instead of injecting")
		},
		run: runPlay,
	}
}

// notifyContext is swapped in tests.
var notifyContext = func(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runPlay(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}
	if len(args) != 1 {
		return fmt.Errorf("play requires exactly one macro name")
	}
	name := args[0]

	speed := floatFlag(fs, "speed")
	if speed == 0 {
		speed = ctx.Config.Playback.Speed
	}
	if err := player.ValidateSpeed(speed); err != nil {
		return err
	}
	repeat := intFlag(fs, "repeat")
	if repeat == 0 {
		repeat = ctx.Config.Playback.RepeatCount
	}
	if repeat < 1 {
		repeat = 1
	}
	dryRun := boolFlag(fs, "dry-run")

	runCtx, stop := notifyContext(context.Background())
	defer stop()

	st, err := openMacroStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	tl, err := st.Load(runCtx, name)
	if err != nil {
		return fmt.Errorf("load macro %q: %w", name, err)
	}

	inj, err := openInjector(ctx, dryRun)
	if err != nil {
		return err
	}
	defer inj.Close()

	ctx.Logger.Info("play command invoked", "name", name, "events", tl.Len(), "speed", speed, "repeat", repeat, "dry_run", dryRun)

	p := newPlayer(ctx, inj)
	completed, err := player.Repeat(runCtx, p, tl, speed, repeat, nil, func(i, n int) {
		fmt.Fprintf(stdout, "Playing: %s (%d/%d)\n", name, i, n)
	})
	if err != nil {
		return fmt.Errorf("play macro %q: %w", name, err)
	}

	if dryRun {
		if dev, ok := inj.(virtualInjector); ok {
			printJournal(stdout, dev)
		}
	}

	if completed < repeat || errors.Is(runCtx.Err(), context.Canceled) {
		fmt.Fprintf(stdout, "Playback stopped after %d of %d iterations\n", completed, repeat)
		return nil
	}
	fmt.Fprintf(stdout, "Played %s %d time(s) (%d events, %s)\n", name, completed, tl.Len(), tl.Duration())
	return nil
}

func printJournal(w io.Writer, dev virtualInjector) {
	actions := dev.Actions()
	fmt.Fprintf(w, "Dry run journal (%d actions):\n", len(actions))
	for _, a := range actions {
		fmt.Fprintf(w, "  %s", a.Kind)
		switch {
		case a.Button != "":
			fmt.Fprintf(w, " %s", a.Button)
		case a.Key != (input.Key{}):
			fmt.Fprintf(w, " %s", a.Key)
		case a.DX != 0 || a.DY != 0:
			fmt.Fprintf(w, " dx=%d dy=%d", a.DX, a.DY)
		default:
			fmt.Fprintf(w, " (%d, %d)", a.X, a.Y)
		}
		fmt.Fprintln(w)
	}
}

func boolFlag(fs *flag.FlagSet, name string) bool {
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	value, err := strconv.ParseBool(f.Value.String())
	if err != nil {
		return false
	}
	return value
}

func floatFlag(fs *flag.FlagSet, name string) float64 {
	f := fs.Lookup(name)
	if f == nil {
		return 0
	}
	value, err := strconv.ParseFloat(f.Value.String(), 64)
	if err != nil {
		return 0
	}
	return value
}

func intFlag(fs *flag.FlagSet, name string) int {
	f := fs.Lookup(name)
	if f == nil {
		return 0
	}
	value, err := strconv.Atoi(f.Value.String())
	if err != nil {
		return 0
	}
	return value
}

func stringFlag(fs *flag.FlagSet, name string) string {
	f := fs.Lookup(name)
	if f == nil {
		return ""
	}
	return f.Value.String()
}
