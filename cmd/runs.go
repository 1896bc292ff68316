package cmd

import (
	"fmt"

	"github.com/abhisek/answergen/internal/store"
	"github.com/abhisek/answergen/internal/ui/theme"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE:  runRunsList,
	}
	runsCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	return runsCmd
}

func runRunsList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.RunRepo().List(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	fmt.Fprintln(out, theme.Title.Render(fmt.Sprintf("%-36s  %-19s  %-10s  %-16s  %7s  %7s  %7s",
		"Run", "Started", "Status", "Model", "Answers", "Skipped", "Failed")))
	fmt.Fprintln(out, theme.Rule(112))

	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %-19s  %-10s  %-16s  %7d  %7d  %7d\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runStatus(r.Status),
			truncate(r.Model, 16),
			r.Records,
			r.Skipped,
			r.Failures,
		)
		if r.Error != "" {
			fmt.Fprintf(out, "  %s\n", theme.Hint.Render(r.Error))
		}
	}
	return nil
}

func runStatus(status string) string {
	switch status {
	case store.RunStatusSucceeded:
		return theme.Ok.Render(fmt.Sprintf("%-10s", status))
	case store.RunStatusFailed:
		return theme.Failed.Render(fmt.Sprintf("%-10s", status))
	default:
		return theme.Warn.Render(fmt.Sprintf("%-10s", status))
	}
}
