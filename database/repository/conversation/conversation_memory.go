package conversationRepo

import (
	"bookflow/models"
	"context"
	"sync"
)

// MemoryConversationRepo keeps sessions in process. Used in development and tests.
type MemoryConversationRepo struct {
	mu       sync.RWMutex
	sessions map[string]models.ConversationSession
}

func NewMemoryConversationRepo() *MemoryConversationRepo {
	return &MemoryConversationRepo{sessions: make(map[string]models.ConversationSession)}
}

func (r *MemoryConversationRepo) Get(_ context.Context, sessionID string) (*models.ConversationSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	s.History = append([]models.ChatMessage(nil), s.History...)
	return &s, nil
}

func (r *MemoryConversationRepo) Save(_ context.Context, s *models.ConversationSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	cp.History = append([]models.ChatMessage(nil), s.History...)
	r.sessions[s.SessionID] = cp
	return nil
}
