// Package llmtest provides a scripted llm.Provider for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/ziadkadry99/course-assistant/internal/llm"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []llm.CompletionRequest
	Reply    string
	Err      error
	ProvName string
	// Respond, when set, decides the reply for each request.
	Respond func(req llm.CompletionRequest) (string, error)
}

// NewMockProvider returns a provider that answers every request with reply.
func NewMockProvider(reply string) *MockProvider {
	return &MockProvider{ProvName: "mock", Reply: reply}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	respond, reply, err := m.Respond, m.Reply, m.Err
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if respond != nil {
		reply, err = respond(req)
	}
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Content: reply, Model: "mock-model", FinishReason: "stop"}, nil
}

// CallCount reports how many requests reached the provider.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastUserText returns the final message of the most recent request.
func (m *MockProvider) LastUserText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return ""
	}
	msgs := m.Calls[len(m.Calls)-1].Messages
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Content
}
