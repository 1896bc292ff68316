package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/abhisek/answergen/internal/answers"
	"github.com/abhisek/answergen/internal/llm"
	"github.com/abhisek/answergen/internal/store"
	"github.com/abhisek/answergen/internal/ui/theme"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// runPipeline answers every question in the input file and writes the
// answer document. The journal is kept only when a database is configured.
func runPipeline(cmd *cobra.Command) error {
	v, err := bindConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), v.GetString("log-level"), v.GetString("log-format"))
	if err != nil {
		return err
	}

	cfg := pipelineConfig(v)
	llmCfg := providerConfig(v)

	runID := uuid.NewString()
	logger = logger.With().Str("run_id", runID).Logger()
	ctx := llm.WithRun(cmd.Context(), runID)

	in, err := os.Open(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	var (
		eventRepo store.EventRepo
		runRepo   store.RunRepo
	)
	if dbPath := v.GetString("db"); dbPath != "" {
		if err := store.EnsureDir(dbPath); err != nil {
			return fmt.Errorf("create database dir: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer st.Close()
		eventRepo = st.EventRepo()
		runRepo = st.RunRepo()
	}

	provider, err := llm.NewProvider(llmCfg, eventRepo, logger)
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	pipeline, err := answers.New(cfg, provider, logger)
	if err != nil {
		return err
	}

	logger.Debug().
		Str("provider", llmCfg.Provider).
		Str("endpoint", llmCfg.Endpoint()).
		Str("model", llmCfg.Model).
		Int("workers", cfg.Workers).
		Msg("Starting run")

	if runRepo != nil {
		if err := runRepo.Start(ctx, store.Run{
			ID:         runID,
			InputPath:  cfg.InputPath,
			OutputPath: cfg.OutputPath,
			Provider:   llmCfg.Provider,
			Model:      llmCfg.Model,
		}); err != nil {
			logger.Warn().Err(err).Msg("failed to journal run start")
			runRepo = nil
		}
	}

	sink := answers.FileSink{Path: cfg.OutputPath}
	summary, runErr := pipeline.Run(ctx, in, sink)

	if runRepo != nil {
		res := store.RunResult{
			Records:  summary.Records,
			Skipped:  summary.Skipped,
			Failures: summary.Failures,
			Err:      runErr,
		}
		if err := runRepo.Finish(context.WithoutCancel(ctx), runID, res); err != nil {
			logger.Warn().Err(err).Msg("failed to journal run result")
		}
	}

	if runErr != nil {
		return runErr
	}

	printSummary(cmd.OutOrStdout(), summary, sink.Location())
	return nil
}

func printSummary(w io.Writer, s answers.Summary, location string) {
	status := theme.Status(s.Failures == 0)
	fmt.Fprintf(w, "%s %s %d answers, %d skipped lines, %d failed calls\n",
		status, theme.Title.Render("answergen"), s.Records, s.Skipped, s.Failures)
	fmt.Fprintf(w, "  %s %s\n", theme.Label.Render("saved to"), location)
}
