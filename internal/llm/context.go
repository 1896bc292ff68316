package llm

import (
	"context"
	"fmt"
)

type contextKey string

const (
	runKey      contextKey = "llm_run"
	questionKey contextKey = "llm_question"
)

// WithRun attaches the run identifier to the context for event logging.
func WithRun(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runKey, runID)
}

// RunFrom extracts the run identifier from the context.
func RunFrom(ctx context.Context) string {
	if v, ok := ctx.Value(runKey).(string); ok {
		return v
	}
	return ""
}

// WithQuestion attaches the question number being answered.
func WithQuestion(ctx context.Context, questionNo any) context.Context {
	return context.WithValue(ctx, questionKey, fmt.Sprint(questionNo))
}

// QuestionFrom extracts the question number from the context.
func QuestionFrom(ctx context.Context) string {
	if v, ok := ctx.Value(questionKey).(string); ok {
		return v
	}
	return ""
}
