package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/offlinefirst/macroreplay/pkg/store"
)

func newListCommand() command {
	return command{
		name:        "list",
		description: "List saved macros",
		run:         runList,
	}
}

func newShowCommand() command {
	return command{
		name:        "show",
		usage:       "[flags] <name>",
		description: "Print a saved macro's events",
		configure: func(fs *flag.FlagSet) {
			fs.Bool("json", false, "Print the stored record as JSON")
		},
		run: runShow,
	}
}

func newDeleteCommand() command {
	return command{
		name:        "delete",
		usage:       "<name>",
		description: "Delete a saved macro",
		run:         runDelete,
	}
}

func runList(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}
	st, err := openMacroStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	names, err := st.List(context.Background())
	if err != nil {
		return fmt.Errorf("list macros: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintf(stdout, "No macros saved in %s\n", ctx.Config.Paths.MacroDir)
		return nil
	}
	for _, name := range names {
		rec, err := st.Info(context.Background(), name)
		if err != nil {
			ctx.Logger.Warn("macro unreadable", "name", name, "error", err)
			continue
		}
		fmt.Fprintf(stdout, "%-24s %4d events  %8s  %s\n", name, rec.Events.Len(), rec.Events.Duration(), rec.Created)
	}
	return nil
}

func runShow(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}
	if len(args) != 1 {
		return fmt.Errorf("show requires exactly one macro name")
	}
	st, err := openMacroStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Info(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("load macro %q: %w", args[0], err)
	}

	if boolFlag(fs, "json") {
		return writeJSON(stdout, rec)
	}

	fmt.Fprintf(stdout, "Macro: %s\n", rec.Name)
	if rec.ID != "" {
		fmt.Fprintf(stdout, "ID: %s\n", rec.ID)
	}
	fmt.Fprintf(stdout, "Created: %s\n", rec.Created)
	fmt.Fprintf(stdout, "Events: %d (%s)\n", rec.Events.Len(), rec.Events.Duration())
	for _, ev := range rec.Events.Events() {
		fmt.Fprintf(stdout, "  %s\n", ev)
	}
	return nil
}

func runDelete(fs *flag.FlagSet, args []string, ctx *AppContext, stdout io.Writer, stderr io.Writer) error {
	if ctx == nil {
		return fmt.Errorf("application context unavailable")
	}
	if len(args) != 1 {
		return fmt.Errorf("delete requires exactly one macro name")
	}
	st, err := openMacroStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	name := args[0]
	if _, err := st.Info(context.Background(), name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintf(stdout, "Macro %s does not exist\n", name)
			return nil
		}
		ctx.Logger.Warn("deleting unreadable macro", "name", name, "error", err)
	}
	if err := st.Delete(context.Background(), name); err != nil {
		return fmt.Errorf("delete macro %q: %w", name, err)
	}
	ctx.Logger.Info("macro deleted", "name", name)
	fmt.Fprintf(stdout, "Deleted %s\n", name)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
