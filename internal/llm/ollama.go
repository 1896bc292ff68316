package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response body ends up in errors.
const maxErrorBody = 512

// OllamaProvider implements Provider against the native Ollama
// /api/generate endpoint with streaming disabled.
type OllamaProvider struct {
	client *http.Client
	url    string
	model  string
}

// NewOllamaProvider creates a provider posting to cfg.Endpoint().
// A nil client selects http.DefaultClient.
func NewOllamaProvider(cfg Config, client *http.Client) (*OllamaProvider, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("ollama model is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaProvider{
		client: client,
		url:    cfg.Endpoint(),
		model:  cfg.Model,
	}, nil
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

// ollamaReply lists the reply fields read for bookkeeping. The payload
// itself is passed through untouched.
type ollamaReply struct {
	Model           string `json:"model"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (p *OllamaProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:  p.model,
		Prompt: req.Prompt,
		Stream: false,
		Options: ollamaOptions{
			NumPredict:  req.MaxTokens,
			Temperature: req.Temperature,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ErrProviderUnavailable{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ErrProviderUnavailable{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, mapOllamaStatus(resp.StatusCode, raw)
	}

	if !json.Valid(raw) {
		return nil, &ErrInvalidResponse{
			Content: raw,
			Err:     errors.New("reply body is not valid JSON"),
		}
	}

	out := &Response{
		Content:    json.RawMessage(raw),
		Model:      p.model,
		StopReason: "end",
	}

	var meta ollamaReply
	if json.Unmarshal(raw, &meta) == nil {
		if meta.Model != "" {
			out.Model = meta.Model
		}
		out.StopReason = mapOllamaStopReason(meta.DoneReason)
		out.Usage = Usage{
			InputTokens:  meta.PromptEvalCount,
			OutputTokens: meta.EvalCount,
			TotalTokens:  meta.PromptEvalCount + meta.EvalCount,
		}
	}

	return out, nil
}

func (p *OllamaProvider) ModelID() string {
	return p.model
}

func mapOllamaStopReason(reason string) string {
	if reason == "length" {
		return "max_tokens"
	}
	return "end"
}

func mapOllamaStatus(code int, body []byte) error {
	excerpt := strings.TrimSpace(string(body))
	if len(excerpt) > maxErrorBody {
		excerpt = excerpt[:maxErrorBody] + "..."
	}
	err := fmt.Errorf("%d %s: %s", code, http.StatusText(code), excerpt)
	if code == http.StatusTooManyRequests {
		return &ErrRateLimit{Err: err}
	}
	return &ErrProviderUnavailable{StatusCode: code, Err: err}
}
