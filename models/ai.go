package models

// Turn outcomes reported back to the chat transport.
const (
	OutcomeReplied = "replied"  // agent produced the reply
	OutcomeHandoff = "handoff"  // stage has no agent, a human takes over
	OutcomeApology = "apology"  // catastrophic failure, generic apology sent
)

// InboundMessage is the payload coming from a chat channel into /api/chat/messages.
type InboundMessage struct {
	Channel      string `json:"channel" binding:"required"`      // e.g. "whatsapp", "webchat"
	UserID       string `json:"userId" binding:"required"`       // end-user id within the channel
	Text         string `json:"text" binding:"required"`         // user's message
	ContactName  string `json:"contactName,omitempty"`           // display name known to the channel
	ContactPhone string `json:"contactPhone,omitempty"`          // phone known to the channel
}

// TurnResult is what the orchestrator returns for one inbound message.
type TurnResult struct {
	SessionID   string           `json:"sessionId"`
	StageID     string           `json:"stageId"`
	Reply       string           `json:"reply"`
	Outcome     string           `json:"outcome"`
	Handoff     bool             `json:"handoff"`
	ToolResults []ToolCallResult `json:"toolResults,omitempty"`
}

// HandoffPayload is queued when a conversation needs a human operator.
type HandoffPayload struct {
	SessionID   string `json:"sessionId"`
	StageID     string `json:"stageId"`
	Channel     string `json:"channel"`
	UserID      string `json:"userId"`
	LastMessage string `json:"lastMessage"`
	Reason      string `json:"reason,omitempty"`
}
