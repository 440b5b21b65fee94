// File: bookflow/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Chat endpoints
	ChatMessageHandler  gin.HandlerFunc
	ResetSessionHandler gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}

// NewHandlerBundle wires the chat handler into the bundle routes expect.
func NewHandlerBundle(chat *ChatHandler) *HandlerBundle {
	return &HandlerBundle{
		ChatMessageHandler:  chat.HandleMessage,
		ResetSessionHandler: chat.ResetSession,
		HealthHandler:       HealthHandler,
	}
}
