package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type runRepo struct {
	db *sql.DB
}

func (r *runRepo) Start(ctx context.Context, run Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO runs (
		id, started_at, input_path, output_path, provider, model, status
	) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		run.InputPath,
		run.OutputPath,
		run.Provider,
		run.Model,
		RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func (r *runRepo) Finish(ctx context.Context, id string, res RunResult) error {
	status := RunStatusSucceeded
	var errMsg string
	if res.Err != nil {
		status = RunStatusFailed
		errMsg = res.Err.Error()
	}

	result, err := r.db.ExecContext(ctx, `UPDATE runs SET
		finished_at = ?, status = ?, records = ?, skipped = ?, failures = ?, error = ?
	WHERE id = ?`,
		formatTime(time.Now()),
		status,
		res.Records,
		res.Skipped,
		res.Failures,
		errMsg,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: run not found", id)
	}
	return nil
}

func (r *runRepo) List(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, started_at, finished_at, input_path, output_path, provider,
		model, status, records, skipped, failures, error
	FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			started, finished string
		)
		if err := rows.Scan(
			&run.ID, &started, &finished, &run.InputPath, &run.OutputPath, &run.Provider,
			&run.Model, &run.Status, &run.Records, &run.Skipped, &run.Failures, &run.Error,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("scan run %s: %w", run.ID, err)
		}
		if run.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("scan run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return runs, nil
}
