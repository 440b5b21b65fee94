package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bookflow/models"

	"go.uber.org/zap"
)

// turn is the explicit state of one inbound-message turn. Only the orchestrator
// touches it; tools see a cloned snapshot of sc.
type turn struct {
	session    *models.ConversationSession
	sc         models.SessionContext
	msg        models.InboundMessage
	startStage string
	log        *zap.Logger

	rounds    int
	terminal  bool
	results   []models.ToolCallResult
	confirmed []models.ToolCallResult
}

func (t *turn) addAssistant(text string, calls []models.ToolCallRequest, now time.Time) {
	t.session.History = append(t.session.History, models.ChatMessage{
		Role:      models.RoleAssistant,
		Content:   text,
		ToolCalls: calls,
		CreatedAt: now,
	})
}

func (t *turn) addToolResult(call models.ToolCallRequest, res models.ToolCallResult, now time.Time) {
	t.results = append(t.results, res)
	body, err := json.Marshal(res)
	if err != nil {
		body = []byte(fmt.Sprintf(`{"requestId":%q,"success":false,"error":"result could not be encoded"}`, res.RequestID))
	}
	t.session.History = append(t.session.History, models.ChatMessage{
		Role:       models.RoleTool,
		Content:    string(body),
		ToolCallID: call.ID,
		Name:       call.Name,
		CreatedAt:  now,
	})
}

// confirmedText describes the writes confirmed during this turn, if any.
func (t *turn) confirmedText() string {
	var parts []string
	for _, r := range t.confirmed {
		if s := fallbackFromResult(r); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// bestText is the reply used when the model gave none.
func (t *turn) bestText(otherwise string) string {
	if s := t.confirmedText(); s != "" {
		return s
	}
	for i := len(t.results) - 1; i >= 0; i-- {
		if s := fallbackFromResult(t.results[i]); s != "" {
			return s
		}
	}
	return otherwise
}

func (t *turn) handoffReason() string {
	for i := len(t.results) - 1; i >= 0; i-- {
		if r, ok := t.results[i].Data["reason"].(string); ok && r != "" {
			return r
		}
	}
	return "stage has no agent"
}

// fallbackFromResult synthesizes a minimal reply from a structured tool result.
func fallbackFromResult(r models.ToolCallResult) string {
	if !r.Success {
		return ""
	}
	if s, ok := r.Data["summary"].(string); ok && s != "" {
		return s
	}
	if s, ok := r.Data["message"].(string); ok && s != "" {
		return s
	}
	if n, ok := r.Data["count"].(int); ok {
		if n == 0 {
			return "I couldn't find any results."
		}
		return fmt.Sprintf("I found %d results.", n)
	}
	if id, ok := r.Data["bookingId"].(string); ok && id != "" {
		return fmt.Sprintf("Done. Your booking reference is %s.", id)
	}
	return ""
}

func firstText(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// trimHistory keeps at most limit messages and always starts on a user message,
// so no tool result is left without the call that produced it. When the newest
// turn alone exceeds limit, that turn is kept in full.
func trimHistory(history []models.ChatMessage, limit int) []models.ChatMessage {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	cut := len(history) - limit
	for cut < len(history) && history[cut].Role != models.RoleUser {
		cut++
	}
	if cut == len(history) {
		// A single turn outgrew the limit: keep it whole from its user message.
		cut = lastUserIndex(history)
		if cut < 0 {
			return nil
		}
	}
	return append([]models.ChatMessage(nil), history[cut:]...)
}

func lastUserIndex(history []models.ChatMessage) int {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == models.RoleUser {
			return i
		}
	}
	return -1
}
