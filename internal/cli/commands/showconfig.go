package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Hedwyn/smelt/internal/cli/config"
	"github.com/Hedwyn/smelt/internal/cli/output"
)

// NewShowConfigCommand creates the show-config command.
func NewShowConfigCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "show-config",
		Short: "Show the smelt config of a project",
		Long:  `Parse and display the [tool.smelt] table of the project's pyproject.toml.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			cmdCtx := NewCommandContext(cmd)

			cfg, err := loadConfig(cmd, path)
			if errors.Is(err, config.ErrNotConfigured) {
				cmdCtx.Renderer.Println("No smelt config found.")
				return nil
			}
			if err != nil {
				return err
			}

			if cmdCtx.Renderer.EffectiveMode() == output.ModeJSON {
				return cmdCtx.Renderer.JSON(cfg)
			}
			cmdCtx.Renderer.Println(cfg.Render())
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", ".", "Project directory")
	return cmd
}
