package mock

import (
	"context"
	"sync"

	"github.com/poiesic/answerit/ai"
)

// MockClient is a test double for ai.ModelClient.
// It allows custom behavior injection via function fields and is safe for
// concurrent use, since the scheduler fans segment calls out in parallel.
type MockClient struct {
	// CompleteFunc is called by Complete if set.
	// If nil, uses default echo behavior.
	CompleteFunc func(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error)

	mu        sync.Mutex
	callCount int
	prompts   []string
}

// NewMockClient creates a mock model client with default behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Complete records the call and returns either the injected behavior's
// result or a canned echo completion.
func (m *MockClient) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, req.Prompt)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	// Default: echo the prompt back as a plain completion
	return &ai.Completion{
		Text:       "mock completion for: " + req.Prompt,
		TokensUsed: len(req.Prompt) / 4,
	}, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns a copy of the prompts received so far, in call order.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Reset clears the call history and custom function.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.prompts = nil
	m.CompleteFunc = nil
}
