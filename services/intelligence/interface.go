// File: services/intelligence/interface.go
package ai

import (
	"context"

	"bookflow/models"
)

// CompletionRequest is one call to the LLM. Tool results travel inside History as tool turns.
type CompletionRequest struct {
	SystemPrompt string
	History      []models.ChatMessage
	Tools        []models.ToolDefinition
}

// Completion is the model's answer: text, tool calls, or both.
type Completion struct {
	Text      string
	ToolCalls []models.ToolCallRequest
}

// LLMProvider produces completions. Retry and backoff are the provider's own business.
type LLMProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// SessionRepository persists the conversation stage and history.
// Get returns nil, nil when the session does not exist yet.
type SessionRepository interface {
	Get(ctx context.Context, sessionID string) (*models.ConversationSession, error)
	Save(ctx context.Context, s *models.ConversationSession) error
}

// HandoffNotifier tells human operators that a conversation needs them.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, p models.HandoffPayload) error
}
