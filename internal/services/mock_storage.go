package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jleechanorg/claude-commands-sub003/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	states    map[uuid.UUID]*state.CanonicalState
	pingError error
	saveError error

	mu sync.Mutex
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		states: make(map[uuid.UUID]*state.CanonicalState),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError configures the mock to fail on SaveState with the given error
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveState mocks saving a campaign state
func (m *MockStorage) SaveState(ctx context.Context, id uuid.UUID, gs *state.CanonicalState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	if gs == nil {
		return errors.New("campaign state cannot be nil")
	}
	cp, err := gs.DeepCopy()
	if err != nil {
		return err
	}
	m.states[id] = cp
	return nil
}

// LoadState mocks loading a campaign state
func (m *MockStorage) LoadState(ctx context.Context, id uuid.UUID) (*state.CanonicalState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gs, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	return gs.DeepCopy()
}

// DeleteState mocks deleting a campaign state
func (m *MockStorage) DeleteState(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}
