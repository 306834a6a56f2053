package commands

import (
	"github.com/spf13/cobra"

	"github.com/Hedwyn/smelt/internal/proc"
	"github.com/Hedwyn/smelt/internal/toolchain"
)

// NewCompileModuleCommand creates the compile-module command.
func NewCompileModuleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compile-module <module-path>",
		Short: "Compile a single Python module into an extension",
		Long: `Compile one Python module into an importable extension with nuitka's
module mode. This is mainly intended for manual self-testing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cmdCtx := NewCommandContext(cmd)
			cmdCtx.Renderer.Warning("This entrypoint is under construction and may not produce a functional .so")

			soPath, err := toolchain.NuitkaifyModule(cmd.Context(), cmdCtx.Runner, "", args[0], func(_ proc.Stream, line string) {
				cmdCtx.Renderer.Println(line)
			})
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Printf(".so path %s\n", soPath)
			return nil
		},
	}
}
