package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abhisek/answergen/internal/store"
	"github.com/rs/zerolog"
)

// failurePreviewLen is how much of a prompt a failure diagnostic shows.
const failurePreviewLen = 50

// LoggingProvider is a decorator that logs failed calls and records every
// call in the run journal.
type LoggingProvider struct {
	inner     Provider
	backend   string
	logger    zerolog.Logger
	eventRepo store.EventRepo
}

// WithLogging wraps a Provider. repo may be nil when no journal is kept.
func WithLogging(p Provider, backend string, logger zerolog.Logger, repo store.EventRepo) Provider {
	return &LoggingProvider{inner: p, backend: backend, logger: logger, eventRepo: repo}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := l.inner.Generate(ctx, req)

	latencyMs := time.Since(start).Milliseconds()

	if err != nil {
		l.logger.Error().
			Err(err).
			Str("prompt", Preview(req.Prompt, failurePreviewLen)).
			Str("provider", l.backend).
			Str("model", l.inner.ModelID()).
			Int64("latency_ms", latencyMs).
			Msgf("Error calling %s API", l.inner.ModelID())
	}

	if l.eventRepo == nil {
		return resp, err
	}

	data := store.LLMRequestEventData{
		RunID:       RunFrom(ctx),
		QuestionNo:  QuestionFrom(ctx),
		Provider:    l.backend,
		Model:       l.inner.ModelID(),
		LatencyMs:   latencyMs,
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.Model = resp.Model
		data.ResponseBody = string(resp.Content)
	}

	if err != nil {
		data.ErrorMessage = err.Error()
	}

	// The journal never fails the request.
	if logErr := l.eventRepo.AppendLLMRequest(context.WithoutCancel(ctx), data); logErr != nil {
		l.logger.Warn().Err(logErr).Msg("failed to journal LLM request")
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// Preview returns the first n characters of s, marking truncation with "...".
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s
}

// serializeRequest builds a readable representation of the request.
func serializeRequest(req Request) string {
	var b strings.Builder
	b.WriteString("[prompt]\n")
	b.WriteString(req.Prompt)
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("[options] max_tokens=%d temperature=%g\n", req.MaxTokens, req.Temperature))
	return b.String()
}
