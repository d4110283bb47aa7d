package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/codebridge/internal/config"
	"github.com/Strob0t/codebridge/internal/domain/bridge"
	"github.com/Strob0t/codebridge/internal/service"
)

const checkUsage = "usage: codebridge check [-json] [-config path] [-engine name] <file>"

// runCheck analyzes one file and prints its diagnostics. The returned
// exit code is 1 when any error-tier diagnostic is present.
func runCheck(args []string, stdout io.Writer) (int, error) {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	jsonOut := fs.Bool("json", false, "print diagnostics as JSON")
	configPath := fs.String("config", "", "path to YAML config file")
	engine := fs.String("engine", "", "analysis engine backend")
	if err := fs.Parse(args); err != nil {
		return 2, fmt.Errorf("%w\n%s", err, checkUsage)
	}
	if fs.NArg() != 1 {
		return 2, errors.New(checkUsage)
	}
	path := fs.Arg(0)

	var flags config.CLIFlags
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config":
			flags.ConfigPath = configPath
		case "engine":
			flags.Engine = engine
		}
	})
	cfg, _, err := config.LoadWithCLI(flags)
	if err != nil {
		return 2, fmt.Errorf("config: %w", err)
	}

	code, err := os.ReadFile(path)
	if err != nil {
		return 2, fmt.Errorf("read %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return 2, err
	}
	cfg.Engine.Workspace = filepath.Dir(abs)
	cfg.Engine.DocumentName = filepath.Base(abs)

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	analyzer := service.NewAnalyzer(cfg, service.NewEngineFactory(cfg.Engine, log), nil, log)
	diags, err := analyzer.Diagnostics(context.Background(), string(code))
	if err != nil {
		return 2, err
	}

	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(diags); err != nil {
			return 2, err
		}
	} else if err := printDiagnostics(stdout, path, diags, isTerminal(stdout)); err != nil {
		return 2, err
	}

	if bridge.HasErrors(diags) {
		return 1, nil
	}
	return 0, nil
}

func printDiagnostics(out io.Writer, path string, diags []bridge.Diagnostic, color bool) error {
	if len(diags) == 0 {
		_, err := fmt.Fprintf(out, "%s: no diagnostics\n", path)
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LOCATION\tSEVERITY\tMESSAGE")
	for _, d := range diags {
		_, _ = fmt.Fprintf(w, "%s:%d:%d\t%s\t%s\n",
			path, d.StartLine, d.StartColumn, severityLabel(d.Severity, color), d.Message)
	}
	return w.Flush()
}

func severityLabel(s bridge.EditorSeverity, color bool) string {
	var name, ansi string
	switch s {
	case bridge.EditorError:
		name, ansi = "error", "31"
	case bridge.EditorWarning:
		name, ansi = "warning", "33"
	case bridge.EditorInfo:
		name, ansi = "info", "36"
	default:
		name, ansi = "hint", "90"
	}
	if !color {
		return name
	}
	return "\x1b[" + ansi + "m" + name + "\x1b[0m"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
