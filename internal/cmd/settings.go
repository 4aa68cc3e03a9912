package cmd

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/offlinefirst/macroreplay/pkg/config"
)

type assignments []string

func (a *assignments) String() string { return strings.Join(*a, ",") }

func (a *assignments) Set(value string) error {
	if !strings.Contains(value, "=") {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	*a = append(*a, value)
	return nil
}

func newSettingsCommand() command {
	return command{
		name:        "settings",
		description: "Show or change persisted settings",
		configure: func(fs *flag.FlagSet) {
			fs.Var(&assignments{}, "set", "Assign key=value and save (repeatable)")
		},
		run: runSettings,
	}
}

func runSettings(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}

	var sets assignments
	if f := fs.Lookup("set"); f != nil {
		if a, ok := f.Value.(*assignments); ok {
			sets = *a
		}
	}

	cfg := ctx.Config
	if len(sets) == 0 {
		fmt.Fprintf(stdout, "Settings (source: %s)\n", cfg.Source)
		for _, key := range config.Keys() {
			value, err := cfg.Get(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "  %s: %s\n", key, value)
		}
		return nil
	}

	for _, assignment := range sets {
		key, value, _ := strings.Cut(assignment, "=")
		if err := cfg.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return err
		}
	}

	path := ctx.ConfigPath
	if path == "" {
		path = config.DefaultFileName
	}
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	ctx.Config = cfg
	ctx.Logger.Info("settings saved", "path", path, "changes", len(sets))
	fmt.Fprintf(stdout, "Saved %d setting(s) to %s\n", len(sets), path)
	return nil
}
