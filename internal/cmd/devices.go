package cmd

import (
	"fmt"
	"time"

	"github.com/offlinefirst/macroreplay/pkg/config"
	"github.com/offlinefirst/macroreplay/pkg/input"
	"github.com/offlinefirst/macroreplay/pkg/input/terminal"
	"github.com/offlinefirst/macroreplay/pkg/input/uinput"
	"github.com/offlinefirst/macroreplay/pkg/input/virtual"
	"github.com/offlinefirst/macroreplay/pkg/logging"
	"github.com/offlinefirst/macroreplay/pkg/player"
	"github.com/offlinefirst/macroreplay/pkg/store"
)

type deviceInjector interface {
	input.Injector
	Close() error
}

var (
	openUInput = func(opts uinput.Options) (deviceInjector, error) {
		inj, err := uinput.Open(opts)
		if err != nil {
			return nil, err
		}
		return inj, nil
	}
	openTerminal = terminal.Open
	openStore    = store.Open
)

// virtualInjector journals actions instead of touching real devices.
type virtualInjector struct {
	*virtual.Device
}

func (virtualInjector) Close() error { return nil }

func openMacroStore(ctx *AppContext) (store.Store, error) {
	return openStore(store.Options{
		Backend:    ctx.Config.Storage.Backend,
		Dir:        ctx.Config.Paths.MacroDir,
		SQLitePath: ctx.Config.SQLitePath(),
		Logger:     logging.Component(ctx.Logger, "store"),
	})
}

// openInjector returns the configured injector, or a journalling virtual device when
// dryRun is set or the configuration selects it.
func openInjector(ctx *AppContext, dryRun bool) (deviceInjector, error) {
	if dryRun || ctx.Config.Input.Injector == config.InjectorVirtual {
		return virtualInjector{virtual.New(virtual.Options{Logger: logging.Component(ctx.Logger, "virtual")})}, nil
	}
	inj, err := openUInput(uinput.Options{
		Width:  ctx.Config.Input.ScreenWidth,
		Height: ctx.Config.Input.ScreenHeight,
		Logger: logging.Component(ctx.Logger, "uinput"),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s injector: %w", ctx.Config.Input.Injector, err)
	}
	return inj, nil
}

func newPlayer(ctx *AppContext, inj input.Injector) *player.Player {
	settle := time.Duration(ctx.Config.Playback.SettleMS) * time.Millisecond
	if settle <= 0 {
		settle = -1
	}
	return player.New(inj, player.Options{SettleDelay: settle, Logger: logging.Component(ctx.Logger, "player")})
}
