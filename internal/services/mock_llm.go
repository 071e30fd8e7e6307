package services

import (
	"context"
	"sync"

	"github.com/jleechanorg/claude-commands-sub003/pkg/chat"
	"github.com/jleechanorg/claude-commands-sub003/pkg/dice"
)

// MockLLMService is a mock implementation of LLMService for testing
type MockLLMService struct {
	InitModelFunc    func(ctx context.Context, modelName string) error
	GenerateTurnFunc func(ctx context.Context, messages []chat.ChatMessage) (*TurnResult, error)
	StrategyValue    dice.Strategy

	// Track calls for testing
	InitModelCalls    []string
	GenerateTurnCalls []GenerateTurnCall

	// Responses are returned in order when GenerateTurnFunc is unset,
	// letting tests script a reprompt sequence. The last entry repeats.
	Responses []*TurnResult

	mu sync.Mutex // protects all fields above
}

type GenerateTurnCall struct {
	Messages []chat.ChatMessage
}

// Ensure MockLLMService implements LLMService interface
var _ LLMService = (*MockLLMService)(nil)

// NewMockLLMService creates a new mock LLM service
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		StrategyValue: dice.StrategyCodeExecution,
	}
}

// InitModel mocks model initialization
func (m *MockLLMService) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)

	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

// GenerateTurn mocks turn generation
func (m *MockLLMService) GenerateTurn(ctx context.Context, messages []chat.ChatMessage) (*TurnResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.GenerateTurnCalls)
	m.GenerateTurnCalls = append(m.GenerateTurnCalls, GenerateTurnCall{Messages: messages})

	if m.GenerateTurnFunc != nil {
		return m.GenerateTurnFunc(ctx, messages)
	}

	if len(m.Responses) > 0 {
		if call >= len(m.Responses) {
			call = len(m.Responses) - 1
		}
		return m.Responses[call], nil
	}

	return &TurnResult{Text: `{"narrative": "Mock response"}`}, nil
}

// Strategy reports the configured strategy
func (m *MockLLMService) Strategy() dice.Strategy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StrategyValue
}

// SetGenerateTurnError sets up the mock to return an error on GenerateTurn
func (m *MockLLMService) SetGenerateTurnError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateTurnFunc = func(ctx context.Context, messages []chat.ChatMessage) (*TurnResult, error) {
		return nil, err
	}
}

// Calls returns a copy of the GenerateTurn call log
func (m *MockLLMService) Calls() []GenerateTurnCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerateTurnCall, len(m.GenerateTurnCalls))
	copy(out, m.GenerateTurnCalls)
	return out
}
