package handlers

import (
	"context"
	"errors"
	"net/http"

	"bookflow/models"
	ai "bookflow/services/intelligence"
	"bookflow/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatService is the conversation engine behind the chat endpoints.
type ChatService interface {
	HandleMessage(ctx context.Context, msg models.InboundMessage) (*models.TurnResult, error)
	ResetSession(ctx context.Context, sessionID string) error
}

type ChatHandler struct {
	Svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{Svc: svc}
}

// HandleMessage runs one inbound chat message through the booking assistant.
func (h *ChatHandler) HandleMessage(c *gin.Context) {
	var msg models.InboundMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid chat message", err.Error())
		return
	}

	result, err := h.Svc.HandleMessage(c.Request.Context(), msg)
	if err != nil {
		if errors.Is(err, ai.ErrInvalidMessage) {
			utils.JSONError(c, http.StatusBadRequest, "Invalid chat message", err.Error())
			return
		}
		getLogger(c).Error("chat turn failed", zap.String("channel", msg.Channel), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to process message", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// ResetSession hands a conversation back to the assistant after an operator is done.
func (h *ChatHandler) ResetSession(c *gin.Context) {
	sessionID := c.Param("id")
	if err := h.Svc.ResetSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, ai.ErrSessionNotFound) {
			utils.JSONError(c, http.StatusNotFound, "Session not found", sessionID)
			return
		}
		getLogger(c).Error("session reset failed", zap.String("sessionId", sessionID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to reset session", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "reset": true})
}
