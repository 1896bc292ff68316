package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int    // max results (0 = unlimited)
	RunID string // only events of this run ("" = all)
}

// LLMRequestEventData captures the data for a single inference call.
type LLMRequestEventData struct {
	RunID        string
	QuestionNo   string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored inference call.
type LLMEvent struct {
	ID        int
	Timestamp time.Time
	LLMRequestEventData
}

// ModelUsage aggregates journal events for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs float64
}

// EventRepo provides access to inference call events.
type EventRepo interface {
	// AppendLLMRequest records an inference call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMEvent, error)

	// LLMUsageByModel aggregates events per model, ordered by model.
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Run describes one pipeline execution.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	InputPath  string
	OutputPath string
	Provider   string
	Model      string
	Status     string
	Records    int
	Skipped    int
	Failures   int
	Error      string
}

// RunResult is recorded when a run ends.
type RunResult struct {
	Records  int
	Skipped  int
	Failures int
	Err      error
}

// RunRepo records pipeline executions.
type RunRepo interface {
	// Start records a new run in the running state.
	Start(ctx context.Context, run Run) error

	// Finish marks the run as succeeded, or failed when res.Err is set.
	Finish(ctx context.Context, id string, res RunResult) error

	// List returns runs, newest first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Run, error)
}
