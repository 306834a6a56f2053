package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Hedwyn/smelt/internal/hostconf"
	"github.com/Hedwyn/smelt/internal/state"
)

// ConfigureHostOptions holds options for the configure-host command.
type ConfigureHostOptions struct {
	Root       string
	ConfigSite string
}

// NewConfigureHostCommand creates the configure-host command.
func NewConfigureHostCommand() *cobra.Command {
	opts := &ConfigureHostOptions{}

	cmd := &cobra.Command{
		Use:   "configure-host <arch> <python-version> [libc]",
		Short: "Configure a CPython source tree for cross-compilation",
		Long: `Prepare a CPython source tree for cross-compiling to the given target
architecture. The source release is downloaded on first use, then
./configure runs with the cross-compilation triples, an isolated install
prefix and the CONFIG_SITE answers file.`,
		Example: `  # Configure CPython 3.13.1 for aarch64 with glibc
  smelt configure-host aarch64 Python-3.13.1

  # Same target, linked against musl
  smelt configure-host aarch64 Python-3.13.1 musl`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runConfigureHost(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", ".", "Working directory holding sources and build trees")
	cmd.Flags().StringVar(&opts.ConfigSite, "config-site", "", "Site configuration file passed as CONFIG_SITE (default: config.site under the working directory)")
	return cmd
}

func runConfigureHost(cmd *cobra.Command, args []string, opts *ConfigureHostOptions) error {
	cmdCtx := NewCommandContext(cmd)

	req := hostconf.Request{Arch: args[0], VersionDir: args[1]}
	if len(args) == 3 {
		req.Libc = args[2]
	}

	configurator := hostconf.New(opts.Root, cmdCtx.Runner, cmdCtx.Logger)
	configurator.ConfigSite = opts.ConfigSite
	configurator.Recorder = cmdCtx.Recorder

	finish := recordHostRun(cmdCtx, opts.Root, fmt.Sprintf("configure-host %s %s", req.Arch, req.VersionDir))
	err := configurator.Configure(cmd.Context(), req)
	finish(err)
	cmdCtx.DumpTraces()
	if err != nil {
		return err
	}

	cmdCtx.Renderer.Success(fmt.Sprintf("configured %s for %s", req.VersionDir, req.HostTriple()))
	return nil
}

// recordHostRun opens a run in the working directory's history store. The
// returned finish closes it with the outcome.
func recordHostRun(cmdCtx *CommandContext, root, command string) func(error) {
	store, err := openStore(root, cmdCtx.Logger)
	if err != nil {
		cmdCtx.Logger.Warn("failed to open build history", slog.Any("error", err))
		return func(error) {}
	}
	run, err := store.CreateRun(command, "")
	if err != nil {
		cmdCtx.Logger.Warn("failed to record run", slog.Any("error", err))
		store.Close()
		return func(error) {}
	}
	return func(runErr error) {
		defer store.Close()
		status, msg := state.RunStatusCompleted, ""
		if runErr != nil {
			status, msg = state.RunStatusFailed, runErr.Error()
		}
		if err := store.CompleteRun(run.ID, status, msg); err != nil {
			cmdCtx.Logger.Warn("failed to complete run", slog.Any("error", err))
		}
	}
}
