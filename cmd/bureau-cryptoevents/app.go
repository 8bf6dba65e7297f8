// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/cryptoevents/lib/config"
	"github.com/bureau-foundation/cryptoevents/lib/cryptoevent"
	"github.com/bureau-foundation/cryptoevents/lib/eventschema"
	"github.com/bureau-foundation/cryptoevents/lib/version"
	"github.com/bureau-foundation/cryptoevents/messaging"
)

const programName = "bureau-cryptoevents"

// app holds process-wide state: standard streams, the loaded config,
// and the parser built from it. Tests construct one with buffers in
// place of the real streams.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	// config is nil when neither --config nor the environment variable
	// names a file. Commands then rely on their own flags.
	config *config.Config
	logger *slog.Logger
	parser *cryptoevent.Parser
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		getenv: os.Getenv,
	}
}

// execute parses global flags, sets up config and logging, and
// dispatches the remaining arguments to the command tree.
func (a *app) execute(ctx context.Context, args []string) error {
	var (
		configPath  string
		logLevel    string
		showVersion bool
	)
	global := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.SetOutput(io.Discard)
	global.StringVar(&configPath, "config", "", "path to config file (default: $"+config.EnvironmentVariable+")")
	global.StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	global.BoolVar(&showVersion, "version", false, "print version information and exit")

	root := a.root()
	if err := global.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			root.printHelp(a.stderr)
			fmt.Fprintf(a.stderr, "\nGlobal flags:\n%s", global.FlagUsages())
			return nil
		}
		return fmt.Errorf("%w\n\nRun '%s --help' for usage.", err, programName)
	}

	if showVersion {
		fmt.Fprintf(a.stdout, "%s %s\n", programName, version.Info())
		return nil
	}

	if err := a.setup(configPath, logLevel); err != nil {
		return err
	}
	return root.execute(ctx, global.Args(), a.stderr)
}

// setup loads the config file, if one is named, and builds the logger
// and parser.
func (a *app) setup(configPath, logLevel string) error {
	if configPath == "" {
		configPath = a.getenv(config.EnvironmentVariable)
	}
	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		a.config = cfg
	}

	level := slog.LevelInfo
	format := ""
	if a.config != nil {
		level, _ = a.config.LogLevel()
		format = a.config.Log.Format
	}
	if logLevel != "" {
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}
	a.logger = newLogger(a.stderr, level, format).With("command", programName)

	var verifier eventschema.Verifier
	if a.config != nil && a.config.Schemas.Directory != "" {
		registry, err := eventschema.Load(os.DirFS(a.config.Schemas.Directory))
		if err != nil {
			return fmt.Errorf("loading schemas from %s: %w", a.config.Schemas.Directory, err)
		}
		verifier = registry
		a.logger.Debug("using schema override", "directory", a.config.Schemas.Directory)
	}
	a.parser = cryptoevent.NewParser(cryptoevent.ParserConfig{
		Verifier: verifier,
		Logger:   a.logger,
	})
	return nil
}

// newLogger builds the stderr logger. An empty format picks text for a
// terminal and JSON otherwise, so piped output stays machine-readable.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	if format == "" {
		format = "json"
		if isTerminal(w) {
			format = "text"
		}
	}
	options := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

func isTerminal(w any) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// readPayload decodes the JSON or JSONC object in the named file, or
// stdin when no file or "-" is given.
func (a *app) readPayload(args []string) (map[string]any, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("expected at most one input file, got %d", len(args))
	}

	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return messaging.DecodePayload(data)
}

// writeJSON writes value to stdout, indented when stdout is a terminal
// and one line per value otherwise.
func (a *app) writeJSON(value any) error {
	encoder := json.NewEncoder(a.stdout)
	encoder.SetEscapeHTML(false)
	if isTerminal(a.stdout) {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(value)
}

// exitError signals a non-zero exit code for an outcome the command has
// already reported on stdout.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit code %d", e.code) }

func (e *exitError) ExitCode() int { return e.code }
