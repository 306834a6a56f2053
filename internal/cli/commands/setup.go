// Package commands implements the smelt subcommands.
package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Hedwyn/smelt/internal/cli/config"
	"github.com/Hedwyn/smelt/internal/cli/output"
	"github.com/Hedwyn/smelt/internal/proc"
	"github.com/Hedwyn/smelt/internal/state"
	"github.com/Hedwyn/smelt/internal/trace"
)

// debugEnvVar turns on debug logging and trace recording without a flag.
const debugEnvVar = "SMELT_DEBUG"

// stateDir is the project-relative directory holding smelt's build history.
const stateDir = ".smelt"

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Logger   *slog.Logger
	Renderer *output.Renderer
	Runner   proc.Runner
	// Recorder collects build traces. Nil unless debugging is on; a nil
	// recorder records nothing.
	Recorder *trace.Recorder
}

// NewCommandContext creates the shared dependencies for a command run.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	debug := debugEnabled(cmd)

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	mode, _ := cmd.Root().PersistentFlags().GetString("output")
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(mode))

	var recorder *trace.Recorder
	if debug {
		recorder = trace.NewRecorder()
	}

	return &CommandContext{
		Logger:   logger,
		Renderer: r,
		Runner:   proc.NewExecRunner(logger),
		Recorder: recorder,
	}
}

// DumpTraces renders the collected traces, if any were recorded.
func (c *CommandContext) DumpTraces() {
	if c.Recorder == nil {
		return
	}
	if report := c.Recorder.Render(); report != "" {
		c.Renderer.Println(report)
	}
	if summary := c.Recorder.Summary(); summary != "" {
		c.Renderer.Println(summary)
	}
}

func debugEnabled(cmd *cobra.Command) bool {
	if verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose"); verbose {
		return true
	}
	// Any non-empty value enables debug; empty or unset leaves it off.
	return os.Getenv(debugEnvVar) != ""
}

// loadConfig reads the project config from dir, applying the command's
// flag overrides.
func loadConfig(cmd *cobra.Command, dir string) (*config.Config, error) {
	return config.Load(dir, cmd.Flags())
}

// openStore opens the project's build history database, creating the
// .smelt directory when needed.
func openStore(projectDir string, logger *slog.Logger) (*state.SQLiteStore, error) {
	dir := filepath.Join(projectDir, stateDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(filepath.Join(dir, "state.db")); err != nil {
		return nil, err
	}
	return store, nil
}

// storeOrNil converts a possibly-nil concrete store into the Store
// interface without producing a typed-nil interface value.
func storeOrNil(s *state.SQLiteStore) state.Store {
	if s == nil {
		return nil
	}
	return s
}
