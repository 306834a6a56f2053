package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Hedwyn/smelt/internal/backend"
	"github.com/Hedwyn/smelt/internal/proc"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	PackagePath       string
	WithoutEntrypoint bool
	Watch             bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the project's extensions and standalone binary",
		Long: `Run the full smelt pipeline: compile the declared zig modules, C
extensions and mypyc modules, then package the entrypoint into a single
executable with nuitka.`,
		Example: `  # Build the project in the current directory
  smelt build

  # Build only the native extensions, e.g. from a packaging hook
  smelt build --without-entrypoint

  # Rebuild whenever a source file changes
  smelt build --watch`,
		Aliases: []string{"build-standalone-binary"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.PackagePath, "package-path", "p", ".", "Project directory")
	cmd.Flags().BoolVar(&opts.WithoutEntrypoint, "without-entrypoint", false, "Skip the standalone binary, build extensions only")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Rebuild on source changes")
	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	cmdCtx := NewCommandContext(cmd)

	cfg, err := loadConfig(cmd, opts.PackagePath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.ProjectDir, cmdCtx.Logger)
	if err != nil {
		// History is best effort; the build itself does not need it.
		cmdCtx.Logger.Warn("failed to open build history", slog.Any("error", err))
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	b := backend.New(cfg, cmdCtx.Runner, cmdCtx.Recorder, storeOrNil(store), cmdCtx.Logger)
	buildOpts := backend.Options{
		WithoutEntrypoint: opts.WithoutEntrypoint,
		OnLine: func(_ proc.Stream, line string) {
			cmdCtx.Renderer.Println(line)
		},
	}

	if opts.Watch {
		return b.Watch(cmd.Context(), buildOpts, func(result *backend.Result, err error) {
			reportBuild(cmdCtx, result, err)
		})
	}

	result, err := b.Build(cmd.Context(), buildOpts)
	reportBuild(cmdCtx, result, err)
	return err
}

func reportBuild(cmdCtx *CommandContext, result *backend.Result, err error) {
	defer cmdCtx.DumpTraces()
	if err != nil {
		cmdCtx.Renderer.Failure(fmt.Sprintf("build failed: %v", err))
		return
	}
	for _, ext := range result.Extensions {
		cmdCtx.Renderer.Println("compiled", ext)
	}
	if result.Binary != "" {
		cmdCtx.Renderer.Success("built " + result.Binary)
	} else {
		cmdCtx.Renderer.Success("extensions built")
	}
}
