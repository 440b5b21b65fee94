// Package session persists the per-conversation context and serialises turns per session.
package session

import (
	"context"
	"fmt"

	"bookflow/models"

	"go.uber.org/zap"
)

// Backend is the storage collaborator behind a Store.
type Backend interface {
	Get(ctx context.Context, sessionID string) (*models.SessionContext, error)
	Set(ctx context.Context, sessionID string, sc *models.SessionContext) error
	Clear(ctx context.Context, sessionID string) error
}

// Store is the SessionContextStore: load, and merge-and-persist in one step.
// Writes are last-write-wins; callers serialise turns per session with a Locker.
type Store struct {
	backend Backend
	logger  *zap.Logger
}

// NewStore wraps a backend.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger}
}

// Load returns the stored context, or an empty one for a new session.
func (s *Store) Load(ctx context.Context, sessionID string) (models.SessionContext, error) {
	sc, err := s.backend.Get(ctx, sessionID)
	if err != nil {
		return models.SessionContext{}, fmt.Errorf("load session context %s: %w", sessionID, err)
	}
	if sc == nil {
		return models.SessionContext{}, nil
	}
	return *sc, nil
}

// Merge applies patch on top of base and persists the result.
// The merged context is returned even when persisting fails.
func (s *Store) Merge(ctx context.Context, sessionID string, base models.SessionContext, patch *models.ContextPatch) (models.SessionContext, error) {
	if patch.IsEmpty() {
		return base, nil
	}
	merged := Apply(base, patch, s.logger.With(zap.String("sessionId", sessionID)))
	if err := s.backend.Set(ctx, sessionID, &merged); err != nil {
		return merged, fmt.Errorf("persist session context %s: %w", sessionID, err)
	}
	return merged, nil
}

// Reset removes the stored context entirely.
func (s *Store) Reset(ctx context.Context, sessionID string) error {
	return s.backend.Clear(ctx, sessionID)
}
