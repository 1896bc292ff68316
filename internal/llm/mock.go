package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// MockResponse is a canned reply for the MockProvider. A non-nil Err makes
// the call fail; otherwise Content is returned as the reply payload.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockReply builds a canned native reply carrying text under ReplyField.
func MockReply(text string) MockResponse {
	content, _ := json.Marshal(map[string]any{
		"model":    "mock",
		ReplyField: text,
		"done":     true,
	})
	return MockResponse{Content: content}
}

// MockProvider replays canned replies in FIFO order and records every
// request. Safe for concurrent use.
type MockProvider struct {
	mu      sync.Mutex
	pending []MockResponse
	Calls   []Request
}

// NewMockProvider creates a MockProvider queued with responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{pending: responses}
}

// Generate pops the next canned reply. An empty queue behaves like an
// unreachable endpoint.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.pending) == 0 {
		return nil, &ErrProviderUnavailable{Err: errors.New("mock: no canned response")}
	}

	next := m.pending[0]
	m.pending = m.pending[1:]
	if next.Err != nil {
		return nil, next.Err
	}

	return &Response{
		Content:    next.Content,
		Usage:      next.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse queues another canned reply.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, resp)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Prompts returns the prompts received so far, in call order.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		out[i] = c.Prompt
	}
	return out
}
