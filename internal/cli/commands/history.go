package commands

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Hedwyn/smelt/internal/cli/output"
	"github.com/Hedwyn/smelt/internal/state"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Path  string
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent smelt runs",
		Long:  `List the most recent builds recorded in the project's history database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Path, "path", "p", ".", "Project directory")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "Maximum number of runs to show")
	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx := NewCommandContext(cmd)

	store, err := openStore(opts.Path, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(opts.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		cmdCtx.Renderer.Println("No runs recorded yet.")
		return nil
	}

	if cmdCtx.Renderer.EffectiveMode() == output.ModeJSON {
		return cmdCtx.Renderer.JSON(runs)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Started", "Command", "Status", "Duration", "Error"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.StartedAt.Local().Format(time.DateTime),
			run.Command,
			run.Status,
			runDuration(run),
			run.Error,
		})
	}
	cmdCtx.Renderer.Println(t.Render())
	return nil
}

func runDuration(run *state.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
