package conversationRepo

import (
	"bookflow/models"
	"context"
)

// ConversationRepository stores one ConversationSession per (channel, end-user) pair.
// Get returns nil, nil when no session exists yet.
type ConversationRepository interface {
	Get(ctx context.Context, sessionID string) (*models.ConversationSession, error)
	Save(ctx context.Context, session *models.ConversationSession) error
}
