package answers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/abhisek/answergen/internal/llm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	docs [][]byte
}

func (m *memorySink) WriteDocument(_ context.Context, doc []byte) error {
	m.docs = append(m.docs, append([]byte(nil), doc...))
	return nil
}

func (m *memorySink) Location() string { return "memory" }

// echoProvider answers every prompt with its upper-cased text.
type echoProvider struct {
	calls atomic.Int32
	delay func(prompt string) time.Duration
}

func (e *echoProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	e.calls.Add(1)
	if e.delay != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.delay(req.Prompt)):
		}
	}
	if strings.HasPrefix(req.Prompt, "fail") {
		return nil, &llm.ErrProviderUnavailable{Err: errors.New("connection refused")}
	}
	body, _ := json.Marshal(map[string]string{"response": strings.ToUpper(req.Prompt)})
	return &llm.Response{Content: body}, nil
}

func (e *echoProvider) ModelID() string { return "echo" }

func newTestPipeline(t *testing.T, provider llm.Provider, logs *bytes.Buffer, mutate ...func(*Config)) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	logger := zerolog.Nop()
	if logs != nil {
		logger = zerolog.New(logs)
	}
	p, err := New(cfg, provider, logger)
	require.NoError(t, err)
	return p
}

func decodeDoc(t *testing.T, doc []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&out))
	return out
}

func logEntries(t *testing.T, logs *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(logs.Bytes()))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func entriesAt(entries []map[string]any, level string) []map[string]any {
	var out []map[string]any
	for _, e := range entries {
		if e["level"] == level {
			out = append(out, e)
		}
	}
	return out
}

func TestRun_FullRecord(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockReply("Hello"))
	p := newTestPipeline(t, mock, nil)
	sink := &memorySink{}

	in := `{"question_no":1,"data_chuck":"A","model(q)":"gpt","question":"Hi"}` + "\n"
	summary, err := p.Run(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)
	assert.Equal(t, Summary{Records: 1}, summary)

	want := `[
    {
        "question_no": 1,
        "data_chuck": "A",
        "model(q)": "gpt",
        "question": "Hi",
        "Responsed_model": "Llama3",
        "model_response": "Hello"
    }
]`
	require.Len(t, sink.docs, 1)
	assert.Equal(t, want, string(sink.docs[0]))

	require.Len(t, mock.Calls, 1)
	assert.Equal(t, llm.Request{Prompt: "Hi", MaxTokens: 300, Temperature: 0.7}, mock.Calls[0])
}

func TestRun_DefaultsFromLinePosition(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockReply("a"), llm.MockReply("b"), llm.MockReply("x"))
	p := newTestPipeline(t, mock, nil)
	sink := &memorySink{}

	in := `{"question":"A"}` + "\n" + `{"question":"B"}` + "\n" + `{"question":"X"}` + "\n"
	_, err := p.Run(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)

	records := decodeDoc(t, sink.docs[0])
	require.Len(t, records, 3)
	third := records[2]
	assert.Equal(t, json.Number("3"), third["question_no"])
	assert.Nil(t, third["data_chuck"])
	assert.Contains(t, third, "data_chuck")
	assert.Equal(t, "unknown", third["model(q)"])
	assert.Equal(t, "X", third["question"])
}

func TestRun_TransportErrorYieldsDiagnosticText(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{Err: errors.New("dial tcp: connection refused")}},
		llm.MockReply("fine"),
	)
	p := newTestPipeline(t, mock, nil)
	sink := &memorySink{}

	in := `{"question":"one"}` + "\n" + `{"question":"two"}` + "\n"
	summary, err := p.Run(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)
	assert.Equal(t, Summary{Records: 2, Failures: 1}, summary)

	records := decodeDoc(t, sink.docs[0])
	require.Len(t, records, 2)
	assert.Equal(t, "Error: Could not get response from Llama3.", records[0]["model_response"])
	assert.Equal(t, "fine", records[1]["model_response"])
}

func TestRun_MissingReplyField(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`{"done":true}`)},
		llm.MockResponse{Content: json.RawMessage(`{"Response":"wrong case"}`)},
		llm.MockResponse{Content: json.RawMessage(`["not","an","object"]`)},
	)
	p := newTestPipeline(t, mock, nil)
	sink := &memorySink{}

	in := strings.Repeat(`{"question":"q"}`+"\n", 3)
	summary, err := p.Run(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)
	assert.Zero(t, summary.Failures)

	for _, r := range decodeDoc(t, sink.docs[0]) {
		assert.Equal(t, "No 'response' key found in Llama3 output.", r["model_response"])
	}
}

func TestRun_EmptyReplyCountsAsFailure(t *testing.T) {
	payloads := []string{`{}`, `null`, `0`, `[]`, `""`, `false`, ``}
	mock := llm.NewMockProvider()
	for _, body := range payloads {
		mock.AddResponse(llm.MockResponse{Content: json.RawMessage(body)})
	}
	p := newTestPipeline(t, mock, nil)
	sink := &memorySink{}

	in := strings.Repeat(`{"question":"q"}`+"\n", len(payloads))
	summary, err := p.Run(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)
	assert.Equal(t, Summary{Records: len(payloads), Failures: len(payloads)}, summary)

	for _, r := range decodeDoc(t, sink.docs[0]) {
		assert.Equal(t, "Error: Could not get response from Llama3.", r["model_response"])
	}
}

func TestRun_PassThroughValuesKeepInputText(t *testing.T) {
	p := newTestPipeline(t, llm.NewMockProvider(llm.MockReply("ok\u2028done")), nil)
	sink := &memorySink{}

	in := `{"model(q)": ["m", 1e3], "question":"Hi", "data_chuck": {"z": 1, "a": {"y": [1, 2.50], "b": null}}, "question_no": 1.0}`
	_, err := p.Run(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)

	want := `[
    {
        "question_no": 1.0,
        "data_chuck": {
            "z": 1,
            "a": {
                "y": [
                    1,
                    2.50
                ],
                "b": null
            }
        },
        "model(q)": [
            "m",
            1e3
        ],
        "question": "Hi",
        "Responsed_model": "Llama3",
        "model_response": "ok` + "\u2028" + `done"
    }
]`
	require.Len(t, sink.docs, 1)
	assert.Equal(t, want, string(sink.docs[0]))
}

func TestRun_CustomReplyFieldAndLabel(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Content: json.RawMessage(`{"output.text":"dotted"}`)},
		llm.MockResponse{Err: errors.New("boom")},
	)
	p := newTestPipeline(t, mock, nil, func(c *Config) {
		c.ReplyField = "output.text"
		c.ResponderLabel = "Mistral-7B"
	})
	sink := &memorySink{}

	in := `{"question":"a"}` + "\n" + `{"question":"b"}` + "\n"
	_, err := p.Run(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)

	records := decodeDoc(t, sink.docs[0])
	assert.Equal(t, "dotted", records[0]["model_response"])
	assert.Equal(t, "Mistral-7B", records[0]["Responsed_model"])
	assert.Equal(t, "Error: Could not get response from Mistral-7B.", records[1]["model_response"])
}

func TestRun_SkippedLinesAreLoggedAndOmitted(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockReply("r1"), llm.MockReply("r4"))
	var logs bytes.Buffer
	p := newTestPipeline(t, mock, &logs)
	sink := &memorySink{}

	in := strings.Join([]string{
		`{"question":"first"}`,
		`{"question": "broken"`,
		`{"question_no": 3}`,
		`{"question":"fourth"}`,
	}, "\n")
	summary, err := p.Run(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)
	assert.Equal(t, Summary{Records: 2, Skipped: 2}, summary)
	assert.Equal(t, []string{"first", "fourth"}, mock.Prompts())

	records := decodeDoc(t, sink.docs[0])
	require.Len(t, records, 2)
	assert.Equal(t, json.Number("1"), records[0]["question_no"])
	assert.Equal(t, json.Number("4"), records[1]["question_no"])

	warnings := entriesAt(logEntries(t, &logs), "warn")
	require.Len(t, warnings, 2)
	assert.EqualValues(t, 2, warnings[0]["line"])
	assert.Equal(t, `{"question": "broken"`, warnings[0]["content"])
	assert.Contains(t, warnings[0]["message"], "malformed JSON")
	assert.EqualValues(t, 3, warnings[1]["line"])
	assert.Contains(t, warnings[1]["message"], "missing 'question' key")
}

func TestRun_ProgressAndCompletionLogs(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockReply("ok"))
	var logs bytes.Buffer
	p := newTestPipeline(t, mock, &logs)
	sink := &memorySink{}

	prompt := strings.Repeat("ঘ", 100)
	in := `{"question_no":5,"data_chuck":12,"question":"` + prompt + `"}`
	_, err := p.Run(context.Background(), strings.NewReader(in), sink)
	require.NoError(t, err)

	infos := entriesAt(logEntries(t, &logs), "info")
	require.Len(t, infos, 2)

	progress := infos[0]
	assert.Equal(t, "Processing question", progress["message"])
	assert.EqualValues(t, 5, progress["question_no"])
	assert.EqualValues(t, 12, progress["data_chunk"])
	assert.Equal(t, strings.Repeat("ঘ", 70)+"...", progress["prompt"])

	done := infos[1]
	assert.Equal(t, "memory", done["output"])
	assert.Contains(t, done["message"], "Responses saved to memory")
}

func TestRun_EmptyInputWritesEmptyArray(t *testing.T) {
	p := newTestPipeline(t, llm.NewMockProvider(), nil)
	sink := &memorySink{}

	summary, err := p.Run(context.Background(), strings.NewReader(""), sink)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	require.Len(t, sink.docs, 1)
	assert.Equal(t, "[]", string(sink.docs[0]))
}

func TestRun_Idempotent(t *testing.T) {
	in := strings.Join([]string{
		`{"question_no":1,"data_chuck":{"z":1,"a":[1.50,"<b>"]},"model(q)":"gpt","question":"Qu'est-ce que c'est? ¿Qué?"}`,
		`bad line`,
		`{"question":"আপনি কেমন আছেন?"}`,
	}, "\n")

	run := func() []byte {
		p := newTestPipeline(t, &echoProvider{}, nil)
		sink := &memorySink{}
		_, err := p.Run(context.Background(), strings.NewReader(in), sink)
		require.NoError(t, err)
		return sink.docs[0]
	}

	first, second := run(), run()
	assert.Equal(t, first, second)
	assert.Contains(t, string(first), "আপনি কেমন আছেন?")
	assert.Contains(t, string(first), `"<b>"`)
	assert.Contains(t, string(first), "1.50")
}

func TestRun_ParallelKeepsInputOrder(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		prompt := "q" + strings.Repeat("x", i)
		if i%5 == 0 {
			prompt = "fail" + prompt
		}
		lines = append(lines, `{"question":"`+prompt+`"}`)
	}
	lines = append(lines, `oops`)
	in := strings.Join(lines, "\n")

	// Earlier prompts are shorter and sleep longer, so calls finish out of order.
	delay := func(prompt string) time.Duration {
		return time.Duration(30-len(prompt)) * time.Millisecond
	}

	sequential := &memorySink{}
	seqProvider := &echoProvider{}
	p := newTestPipeline(t, seqProvider, nil)
	seqSummary, err := p.Run(context.Background(), strings.NewReader(in), sequential)
	require.NoError(t, err)

	parallel := &memorySink{}
	parProvider := &echoProvider{delay: delay}
	p = newTestPipeline(t, parProvider, nil, func(c *Config) { c.Workers = 8 })
	parSummary, err := p.Run(context.Background(), strings.NewReader(in), parallel)
	require.NoError(t, err)

	assert.Equal(t, seqSummary, parSummary)
	assert.Equal(t, Summary{Records: 20, Skipped: 1, Failures: 4}, parSummary)
	assert.EqualValues(t, 20, parProvider.calls.Load())
	assert.Equal(t, string(sequential.docs[0]), string(parallel.docs[0]))
}

func TestRun_CancelledContextWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, llm.NewMockProvider(llm.MockReply("x")), nil)
	sink := &memorySink{}

	_, err := p.Run(ctx, strings.NewReader(`{"question":"a"}`), sink)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.docs)
}

type cancellingProvider struct {
	cancel context.CancelFunc
}

func (c *cancellingProvider) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	c.cancel()
	return nil, ctx.Err()
}

func (c *cancellingProvider) ModelID() string { return "cancel" }

func TestRun_CancelledMidRunWritesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newTestPipeline(t, &cancellingProvider{cancel: cancel}, nil)
	sink := &memorySink{}

	in := `{"question":"a"}` + "\n" + `{"question":"b"}` + "\n"
	summary, err := p.Run(ctx, strings.NewReader(in), sink)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.docs)
	assert.Zero(t, summary.Records)
}

func TestRun_ReadErrorWritesNothing(t *testing.T) {
	p := newTestPipeline(t, llm.NewMockProvider(llm.MockReply("x")), nil)
	sink := &memorySink{}

	in := iotest.ErrReader(errors.New("disk gone"))
	_, err := p.Run(context.Background(), in, sink)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Empty(t, sink.docs)
}

type failingSink struct{}

func (failingSink) WriteDocument(context.Context, []byte) error { return errors.New("read-only") }
func (failingSink) Location() string                            { return "nowhere" }

func TestRun_SinkErrorPropagates(t *testing.T) {
	p := newTestPipeline(t, llm.NewMockProvider(llm.MockReply("x")), nil)
	_, err := p.Run(context.Background(), strings.NewReader(`{"question":"a"}`), failingSink{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write output")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(DefaultConfig(), nil, zerolog.Nop())
	require.Error(t, err)

	cfg := DefaultConfig()
	cfg.MaxTokens = 0
	cfg.ReplyField = ""
	_, err = New(cfg, llm.NewMockProvider(), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max tokens")
	assert.Contains(t, err.Error(), "reply field")
}
