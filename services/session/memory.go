package session

import (
	"context"
	"sync"

	"bookflow/models"
)

// MemoryBackend keeps contexts in process memory. Used in dev mode and tests.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]models.SessionContext
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]models.SessionContext)}
}

func (b *MemoryBackend) Get(_ context.Context, sessionID string) (*models.SessionContext, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sc, ok := b.data[sessionID]
	if !ok {
		return &models.SessionContext{}, nil
	}
	out := sc.Clone()
	return &out, nil
}

func (b *MemoryBackend) Set(_ context.Context, sessionID string, sc *models.SessionContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[sessionID] = sc.Clone()
	return nil
}

func (b *MemoryBackend) Clear(_ context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, sessionID)
	return nil
}
