package llm

import (
	"context"
	"encoding/json"
)

// Provider is the core abstraction for text generation.
// A nil error means Response.Content holds the decoded reply payload; any
// error means no reply is available for the prompt.
type Provider interface {
	// Generate sends one prompt to the model and returns its reply.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes a single generation call.
type Request struct {
	Prompt string

	// MaxTokens caps the generated length (num_predict for Ollama).
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float64
}

// Response holds the endpoint's reply.
type Response struct {
	// Content is the reply payload exactly as decoded from the endpoint.
	// Providers talking to non-native APIs shape it like a native reply,
	// with the generated text under ReplyField.
	Content json.RawMessage

	// Usage reports token consumption when the endpoint includes it.
	Usage Usage

	// Model is the model that served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// ReplyField is the reply key that carries generated text.
const ReplyField = "response"

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
