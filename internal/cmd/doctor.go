package cmd

import (
	"flag"
	"fmt"
	"io"

	"github.com/offlinefirst/macroreplay/pkg/config"
	"github.com/offlinefirst/macroreplay/pkg/input"
)

func newDoctorCommand() command {
	return command{
		name:        "doctor",
		description: "Report capture and injection support on this host",
		run:         runDoctor,
	}
}

// detectEnvironment is swapped in tests.
var detectEnvironment = input.DetectEnvironment

func runDoctor(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	cfg := ctx.Config
	fmt.Fprintf(stdout, "Config source: %s\n", cfg.Source)
	fmt.Fprintf(stdout, "Macro folder: %s\n", cfg.Paths.MacroDir)
	fmt.Fprintf(stdout, "Storage: %s", cfg.Storage.Backend)
	if cfg.Storage.Backend == config.BackendSQLite {
		fmt.Fprintf(stdout, " (%s)", cfg.SQLitePath())
	}
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "Hotkeys: record=%s play=%s\n", cfg.Hotkeys.Record, cfg.Hotkeys.Play)
	if endpoint := cfg.Telemetry.TracingEndpoint(); endpoint != "" {
		fmt.Fprintf(stdout, "Telemetry: %s\n", endpoint)
	} else {
		fmt.Fprintln(stdout, "Telemetry: disabled")
	}

	ready := true
	fmt.Fprintln(stdout, "Input backends:")
	for _, env := range detectEnvironment(cfg.Input.Injector) {
		fmt.Fprintf(stdout, "  - %s: provider=%s available=%t permission=%s", env.Role, env.Provider, env.Available, env.Permission)
		if env.Message != "" {
			fmt.Fprintf(stdout, " (%s)", env.Message)
		}
		fmt.Fprintln(stdout)
		if env.Guidance != "" {
			fmt.Fprintf(stdout, "      hint: %s\n", env.Guidance)
		}
		if !env.Available {
			ready = false
		}
		ctx.Logger.Debug("input backend probed", "role", env.Role, "provider", env.Provider, "available", env.Available, "permission", env.Permission)
	}

	if ready {
		fmt.Fprintln(stdout, "Ready to record and play.")
	} else {
		fmt.Fprintln(stdout, "Some input backends are unavailable; see hints above.")
	}
	return nil
}
