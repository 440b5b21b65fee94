package models

import "time"

// Chat roles stored in a conversation's history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one turn of conversation history.
type ChatMessage struct {
	Role       string            `bson:"role" json:"role"`
	Content    string            `bson:"content,omitempty" json:"content,omitempty"`
	ToolCalls  []ToolCallRequest `bson:"toolCalls,omitempty" json:"toolCalls,omitempty"`
	ToolCallID string            `bson:"toolCallId,omitempty" json:"toolCallId,omitempty"`
	Name       string            `bson:"name,omitempty" json:"name,omitempty"` // tool name on tool turns
	CreatedAt  time.Time         `bson:"createdAt" json:"createdAt"`
}

// ConversationSession is one conversation per (channel, end-user) pair.
// Context is persisted separately by the session context store.
type ConversationSession struct {
	SessionID      string         `bson:"sessionId" json:"sessionId"`
	Channel        string         `bson:"channel" json:"channel"`
	UserID         string         `bson:"userId" json:"userId"`
	CurrentStageID string         `bson:"currentStageId" json:"currentStageId"`
	History        []ChatMessage  `bson:"history" json:"history"`
	Context        SessionContext `bson:"-" json:"context"`
	CreatedAt      time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time      `bson:"updatedAt" json:"updatedAt"`
}
