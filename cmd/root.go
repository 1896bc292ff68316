package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abhisek/answergen/internal/answers"
	"github.com/abhisek/answergen/internal/llm"
	"github.com/abhisek/answergen/internal/store"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the answergen command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "answergen",
		Short: "Answer JSONL questions with a local Ollama model",
		Long: "answergen reads questions from a JSON Lines file, asks a local Ollama model for each one,\n" +
			"and saves every reply in a single JSON document.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd)
		},
	}

	f := root.Flags()
	f.String("provider", llm.ProviderOllama, "Generation backend: ollama or openai")
	f.String("endpoint", "", "Generate URL (ollama) or API base URL (openai); empty selects the backend default")
	f.String("model", llm.DefaultModel, "Model sent with every request")
	f.StringP("input", "i", answers.DefaultInputPath, "JSON Lines file with questions")
	f.StringP("output", "o", answers.DefaultOutputPath, "Where the answer document is written")
	f.Int("max-tokens", answers.DefaultMaxTokens, "Maximum tokens generated per answer")
	f.Float64("temperature", answers.DefaultTemperature, "Sampling temperature")
	f.String("label", answers.DefaultResponderLabel, "Responder label written into every record")
	f.String("reply-field", llm.ReplyField, "Reply key holding the generated text")
	f.IntP("workers", "w", 1, "Concurrent inference calls")

	pf := root.PersistentFlags()
	pf.String("db", "", "Path to SQLite journal (overrides ANSWERGEN_DB env var)")
	pf.String("log-level", "info", "Log level: debug, info, warn or error")
	pf.String("log-format", "console", "Log format: console or json")

	root.AddCommand(newLLMCmd())
	root.AddCommand(newRunsCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// resolveDBPath returns the journal path for read commands using --db
// (highest priority), then ANSWERGEN_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// openJournal opens the journal for read commands.
func openJournal(cmd *cobra.Command) (*store.Store, error) {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}
