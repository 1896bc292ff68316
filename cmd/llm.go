package cmd

import (
	"fmt"
	"strconv"

	"github.com/abhisek/answergen/internal/store"
	"github.com/abhisek/answergen/internal/ui/theme"
	"github.com/spf13/cobra"
)

func newLLMCmd() *cobra.Command {
	llmCmd := &cobra.Command{
		Use:   "llm",
		Short: "Inspect journaled inference calls",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent inference calls",
		Args:  cobra.NoArgs,
		RunE:  runLLMList,
	}
	listCmd.Flags().IntP("limit", "n", 20, "Number of events to show")
	listCmd.Flags().StringP("run", "r", "", "Only show calls of this run")

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View full request/response for an inference call",
		Args:  cobra.ExactArgs(1),
		RunE:  runLLMView,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show call counts, token usage and latency per model",
		Args:  cobra.NoArgs,
		RunE:  runLLMStats,
	}

	llmCmd.AddCommand(listCmd)
	llmCmd.AddCommand(viewCmd)
	llmCmd.AddCommand(statsCmd)
	return llmCmd
}

func runLLMList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	runID, _ := cmd.Flags().GetString("run")

	s, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{Limit: limit, RunID: runID})
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No LLM events found.")
		return nil
	}

	fmt.Fprintln(out, theme.Title.Render(fmt.Sprintf("%-5s  %-19s  %-8s  %-10s  %-24s  %-6s  %-6s  %-7s  %s",
		"ID", "Timestamp", "Run", "Question", "Model", "In", "Out", "Ms", "OK")))
	fmt.Fprintln(out, theme.Rule(104))

	for _, e := range events {
		fmt.Fprintf(out, "%-5d  %-19s  %-8s  %-10s  %-24s  %-6d  %-6d  %-7d  %s\n",
			e.ID,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			truncate(e.RunID, 8),
			truncate(e.QuestionNo, 10),
			truncate(e.Model, 24),
			e.InputTokens,
			e.OutputTokens,
			e.LatencyMs,
			theme.Status(e.Success),
		)
	}
	return nil
}

func runLLMView(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid ID %q: %w", args[0], err)
	}

	s, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	if e == nil {
		return fmt.Errorf("event %d not found", id)
	}

	out := cmd.OutOrStdout()
	sep := theme.Rule(60)

	fmt.Fprintf(out, "ID:        %d\n", e.ID)
	fmt.Fprintf(out, "Time:      %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Run:       %s\n", e.RunID)
	fmt.Fprintf(out, "Question:  %s\n", e.QuestionNo)
	fmt.Fprintf(out, "Provider:  %s\n", e.Provider)
	fmt.Fprintf(out, "Model:     %s\n", e.Model)
	fmt.Fprintf(out, "Tokens:    %d in / %d out\n", e.InputTokens, e.OutputTokens)
	fmt.Fprintf(out, "Latency:   %dms\n", e.LatencyMs)
	fmt.Fprintf(out, "Success:   %v\n", e.Success)
	if e.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:     %s\n", e.ErrorMessage)
	}

	section := func(title, body string) {
		fmt.Fprintln(out, sep)
		fmt.Fprintln(out, theme.Title.Render(title))
		fmt.Fprintln(out, sep)
		if body == "" {
			fmt.Fprintln(out, theme.Hint.Render("(not captured)"))
			return
		}
		fmt.Fprintln(out, body)
	}

	fmt.Fprintln(out)
	section("REQUEST", e.RequestBody)
	section("RESPONSE", e.ResponseBody)
	return nil
}

func runLLMStats(cmd *cobra.Command, args []string) error {
	s, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	usage, err := s.EventRepo().LLMUsageByModel(cmd.Context())
	if err != nil {
		return fmt.Errorf("query usage: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(usage) == 0 {
		fmt.Fprintln(out, "No LLM usage recorded yet.")
		return nil
	}

	fmt.Fprintln(out, theme.Title.Render("Usage by Model"))
	fmt.Fprintln(out, theme.Rule(84))
	fmt.Fprintf(out, "%-28s  %6s  %8s  %10s  %10s  %10s\n",
		"Model", "Calls", "Failed", "Input", "Output", "Avg Ms")
	fmt.Fprintln(out, theme.Rule(84))

	var totalCalls, totalFailed, totalIn, totalOut int
	for _, mu := range usage {
		fmt.Fprintf(out, "%-28s  %6d  %8d  %10d  %10d  %10.0f\n",
			truncate(mu.Model, 28), mu.Calls, mu.Failures, mu.InputTokens, mu.OutputTokens, mu.AvgLatencyMs)
		totalCalls += mu.Calls
		totalFailed += mu.Failures
		totalIn += mu.InputTokens
		totalOut += mu.OutputTokens
	}

	fmt.Fprintln(out, theme.Rule(84))
	fmt.Fprintf(out, "%-28s  %6d  %8d  %10d  %10d\n",
		"TOTAL", totalCalls, totalFailed, totalIn, totalOut)
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
