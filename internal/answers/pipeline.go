package answers

import (
	"context"
	"fmt"
	"io"

	"github.com/abhisek/answergen/internal/llm"
	"github.com/abhisek/answergen/internal/questions"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// progressPreviewLen is how much of a prompt the progress line shows.
const progressPreviewLen = 70

// Summary counts what a run did.
type Summary struct {
	Records  int // answers written
	Skipped  int // input lines that produced no answer
	Failures int // answers holding the could-not-get-response text
}

// Pipeline turns a question stream into an answer document.
type Pipeline struct {
	cfg      Config
	provider llm.Provider
	logger   zerolog.Logger
}

// New creates a Pipeline.
func New(cfg Config, provider llm.Provider, logger zerolog.Logger) (*Pipeline, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Pipeline{cfg: cfg, provider: provider, logger: logger}, nil
}

// pending is the result slot owned by one question.
type pending struct {
	answer Answer
	failed bool
}

// Run reads every question from in, asks the provider for each, and hands
// the complete document to sink. Lines that cannot be used are logged and
// skipped; failed calls yield a diagnostic answer. Nothing is written when
// the context is cancelled or the input cannot be read to the end.
func (p *Pipeline) Run(ctx context.Context, in io.Reader, sink Sink) (Summary, error) {
	var (
		summary Summary
		results []*pending
		g       errgroup.Group
	)

	dispatch := func(f func()) { f() }
	if p.cfg.Workers > 1 {
		g.SetLimit(p.cfg.Workers)
		dispatch = func(f func()) {
			g.Go(func() error {
				f()
				return nil
			})
		}
	}

	reader := questions.NewReader(in)
	for entry := range reader.Entries() {
		if ctx.Err() != nil {
			break
		}
		if entry.Skipped() {
			p.logSkipped(entry.Err)
			summary.Skipped++
			continue
		}

		q := entry.Question
		slot := &pending{}
		results = append(results, slot)

		p.logger.Info().
			RawJSON("question_no", q.QuestionNo).
			RawJSON("data_chunk", q.DataChunk).
			Str("prompt", llm.Preview(q.Prompt, progressPreviewLen)).
			Msg("Processing question")

		dispatch(func() { p.answer(ctx, q, slot) })
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if err := reader.Err(); err != nil {
		return summary, fmt.Errorf("read input: %w", err)
	}

	answers := make([]Answer, 0, len(results))
	for _, r := range results {
		answers = append(answers, r.answer)
		if r.failed {
			summary.Failures++
		}
	}
	summary.Records = len(answers)

	doc, err := Encode(answers)
	if err != nil {
		return summary, err
	}
	if err := Validate(doc); err != nil {
		return summary, err
	}
	if err := sink.WriteDocument(ctx, doc); err != nil {
		return summary, fmt.Errorf("write output: %w", err)
	}

	p.logger.Info().
		Str("output", sink.Location()).
		Int("records", summary.Records).
		Int("skipped", summary.Skipped).
		Int("failures", summary.Failures).
		Msgf("Processing complete. Responses saved to %s", sink.Location())

	return summary, nil
}

// answer fills slot for one question.
func (p *Pipeline) answer(ctx context.Context, q *questions.Question, slot *pending) {
	slot.answer = Answer{
		QuestionNo:     q.QuestionNo,
		DataChunk:      q.DataChunk,
		ModelTag:       q.ModelTag,
		Question:       q.Prompt,
		ResponderLabel: p.cfg.ResponderLabel,
	}

	resp, err := p.provider.Generate(llm.WithQuestion(ctx, q.Number()), llm.Request{
		Prompt:      q.Prompt,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil || emptyReply(resp.Content) {
		slot.failed = true
		slot.answer.ModelResponse = fmt.Sprintf("Error: Could not get response from %s.", p.cfg.ResponderLabel)
		return
	}

	slot.answer.ModelResponse = p.replyText(resp)
}

// emptyReply reports a reply payload that carries nothing: null, false,
// zero, "", [] or {}. Such a reply counts as no response at all.
func emptyReply(content []byte) bool {
	reply := gjson.ParseBytes(content)
	switch reply.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.Number:
		return reply.Num == 0
	case gjson.String:
		return reply.Str == ""
	}
	if reply.IsArray() {
		return len(reply.Array()) == 0
	}
	if reply.IsObject() {
		empty := true
		reply.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return empty
	}
	return false
}

// replyText extracts the generated text from a reply payload.
func (p *Pipeline) replyText(resp *llm.Response) string {
	field := gjson.GetBytes(resp.Content, gjson.Escape(p.cfg.ReplyField))
	if !field.Exists() {
		return fmt.Sprintf("No '%s' key found in %s output.", p.cfg.ReplyField, p.cfg.ResponderLabel)
	}
	return field.String()
}

func (p *Pipeline) logSkipped(lineErr *questions.LineError) {
	ev := p.logger.Warn().
		Int("line", lineErr.Line).
		Str("content", lineErr.Content)
	if lineErr.Err != nil {
		ev = ev.AnErr("reason", lineErr.Err)
	}
	ev.Msgf("Skipping line %d: %v", lineErr.Line, lineErr.Kind)
}
