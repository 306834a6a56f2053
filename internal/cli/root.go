// Package cli provides the command-line interface for smelt.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Hedwyn/smelt/internal/cli/commands"
	"github.com/Hedwyn/smelt/internal/proc"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

const banner = `
 ____                 _ _
/ ___| _ __ ___   ___| | |_
\___ \| '_ ` + "`" + ` _ \ / _ \ | __|
 ___) | | | | | |  __/ | |_
|____/|_| |_| |_|\___|_|\__|
`

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "smelt",
		Short: "Compile Python projects into standalone native binaries",
		Long: `Smelt compiles Python projects into standalone native binaries.

It reads the [tool.smelt] table of your pyproject.toml, builds the declared
native extensions (C via zig, zig modules, mypyc-compiled modules), then
packages the entrypoint into a single executable with nuitka.`,
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return
			}
			fmt.Fprint(cmd.OutOrStdout(), banner, "\n")
		},
		// Usage stays on so argument mistakes print it; commands silence
		// it themselves once validation passed, so runtime failures don't.
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|json)")

	rootCmd.AddCommand(commands.NewShowConfigCommand())
	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewConfigureHostCommand())
	rootCmd.AddCommand(commands.NewCompileModuleCommand())
	rootCmd.AddCommand(commands.NewNuitkaifyCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit))

	return rootCmd
}

// Execute runs the root command and returns the process exit code. Failed
// subprocesses propagate their own exit code; every other error maps to 1.
func Execute() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, `/!\  [Smelt] An error occured:`)
		fmt.Fprintln(os.Stderr, err)
		var exitErr *proc.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}
