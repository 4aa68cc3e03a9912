package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/gdamore/tcell/v2"

	"github.com/offlinefirst/macroreplay/pkg/config"
	"github.com/offlinefirst/macroreplay/pkg/input"
	"github.com/offlinefirst/macroreplay/pkg/input/terminal"
	"github.com/offlinefirst/macroreplay/pkg/logging"
	"github.com/offlinefirst/macroreplay/pkg/recorder"
	"github.com/offlinefirst/macroreplay/pkg/session"
	"github.com/offlinefirst/macroreplay/pkg/timeline"
)

func newRecordCommand() command {
	return command{
		name:        "record",
		description: "Record from this terminal; hotkeys toggle recording and playback",
		configure: func(fs *flag.FlagSet) {
			fs.String("name", session.DefaultName, "Name to save recordings under")
		},
		run: runRecord,
	}
}

type hotkeyAction int

const (
	actionRecord hotkeyAction = iota
	actionPlay
	actionQuitIdle
	actionInterrupt
)

// ctrlC is what the terminal reports for Ctrl+C while it is in raw mode.
const ctrlC = 3

func runRecord(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}
	name := stringFlag(fs, "name")
	cfg := ctx.Config

	st, err := openMacroStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	inj, err := openInjector(ctx, false)
	if err != nil {
		return err
	}
	defer inj.Close()

	hook, err := openTerminal(terminal.Options{Logger: logging.Component(ctx.Logger, "terminal")})
	if err != nil {
		return err
	}
	if err := hook.Start(); err != nil {
		return err
	}
	defer hook.Close()

	statuses := make(chan string, 16)
	sess, err := session.New(session.Options{
		Store:       st,
		Recorder:    recorder.New(hook, hook, recorder.Options{Logger: logging.Component(ctx.Logger, "recorder")}),
		Player:      newPlayer(ctx, inj),
		Excluded:    cfg.ExcludedKeys(),
		Speed:       cfg.Playback.Speed,
		RepeatCount: cfg.Playback.RepeatCount,
		SaveName:    name,
		OnStatus: func(msg string) {
			select {
			case statuses <- msg:
			default:
			}
		},
		Logger: logging.Component(ctx.Logger, "session"),
	})
	if err != nil {
		return err
	}

	// Hotkeys are forwarded so that session calls never run on the hook goroutine.
	actions := make(chan hotkeyAction, 16)
	recordKey, _ := config.NormalizeHotkey(cfg.Hotkeys.Record)
	playKey, _ := config.NormalizeHotkey(cfg.Hotkeys.Play)
	listener, err := hook.ListenKeyboard(input.KeyboardCallbacks{
		OnPress: func(k timeline.RawKey) {
			if action, ok := classifyHotkey(k, recordKey, playKey); ok {
				select {
				case actions <- action:
				default:
				}
			}
		},
	})
	if err != nil {
		return err
	}
	defer listener.Stop()

	runCtx, stop := notifyContext(context.Background())
	defer stop()

	screen := hook.Screen()
	help := fmt.Sprintf("%s: record/stop  %s: play/stop  q or esc: quit when idle  ctrl+c: quit", cfg.Hotkeys.Record, cfg.Hotkeys.Play)

	var saved []string
	if _, err := sess.ToggleRecord(runCtx); err != nil {
		return err
	}
	drawStatus(screen, sess.Status(), help)

loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case msg := <-statuses:
			drawStatus(screen, msg, help)
		case action := <-actions:
			switch action {
			case actionRecord:
				savedName, err := sess.ToggleRecord(runCtx)
				if err != nil {
					ctx.Logger.Error("record toggle failed", "error", err)
				}
				if savedName != "" {
					saved = append(saved, savedName)
				}
			case actionPlay:
				if err := sess.TogglePlay(runCtx, ""); err != nil {
					ctx.Logger.Error("play toggle failed", "error", err)
					drawStatus(screen, "Play Error: "+err.Error(), help)
				}
			case actionQuitIdle:
				if sess.State() == session.StateIdle {
					break loop
				}
			case actionInterrupt:
				break loop
			}
		}
	}

	finishCtx := context.Background()
	if sess.State() == session.StateRecording {
		savedName, err := sess.ToggleRecord(finishCtx)
		if err != nil {
			ctx.Logger.Error("saving recording failed", "error", err)
		}
		if savedName != "" {
			saved = append(saved, savedName)
		}
	}
	if err := sess.StopAll(finishCtx); err != nil {
		ctx.Logger.Error("stopping session failed", "error", err)
	}

	listener.Stop()
	hook.Close()

	for _, tr := range sess.Controller().Timeline() {
		ctx.Logger.Debug("session transition", "from", tr.From, "to", tr.To, "reason", tr.Reason, "at", tr.At)
	}
	if len(saved) == 0 {
		fmt.Fprintln(stdout, "Nothing recorded")
		return nil
	}
	for _, n := range saved {
		fmt.Fprintf(stdout, "Saved macro %s\n", n)
	}
	return nil
}

func classifyHotkey(k timeline.RawKey, recordKey, playKey string) (hotkeyAction, bool) {
	if k.HasChar && k.Char == ctrlC {
		return actionInterrupt, true
	}
	switch id := timeline.NormalizeKey(k); id {
	case recordKey:
		return actionRecord, true
	case playKey:
		return actionPlay, true
	case "q", "esc":
		return actionQuitIdle, true
	}
	return 0, false
}

func drawStatus(screen tcell.Screen, status, help string) {
	screen.Clear()
	drawText(screen, 0, 0, status, tcell.StyleDefault.Bold(true))
	drawText(screen, 0, 1, help, tcell.StyleDefault.Dim(true))
	screen.Show()
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
}
