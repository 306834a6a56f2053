package commands

import (
	"github.com/spf13/cobra"

	"github.com/Hedwyn/smelt/internal/proc"
	"github.com/Hedwyn/smelt/internal/toolchain"
)

// NewNuitkaifyCommand creates the nuitkaify command.
func NewNuitkaifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nuitkaify <entrypoint-path>",
		Short: "Compile a Python script into a standalone executable",
		Long: `Run the nuitka wrapper directly on a script, without a project config.
This is mainly intended for manual self-testing; if you only need nuitka
features you should probably just call nuitka directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cmdCtx := NewCommandContext(cmd)

			binary, err := toolchain.CompileWithNuitka(cmd.Context(), cmdCtx.Runner, "", args[0], toolchain.NuitkaOptions{
				OnLine: func(_ proc.Stream, line string) {
					cmdCtx.Renderer.Println(line)
				},
			})
			if err != nil {
				return err
			}
			cmdCtx.Renderer.Success("built " + binary)
			return nil
		},
	}
}
