package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/jleechanorg/claude-commands-sub003/pkg/state"
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// Storage defines the interface for campaign state persistence
type Storage interface {
	HealthChecker
	Closer

	// SaveState saves a campaign's canonical state
	SaveState(ctx context.Context, id uuid.UUID, gs *state.CanonicalState) error

	// LoadState retrieves a campaign's canonical state.
	// Returns nil if the campaign doesn't exist.
	LoadState(ctx context.Context, id uuid.UUID) (*state.CanonicalState, error)

	// DeleteState removes a campaign's canonical state
	DeleteState(ctx context.Context, id uuid.UUID) error
}
