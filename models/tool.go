package models

// ToolDefinition is one catalog entry offered to the LLM.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema object
}

// ToolCallRequest is a tool invocation proposed by the LLM.
// Arguments stay an untyped bag until the tool's own contract validates them.
type ToolCallRequest struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`

	// ArgumentsError is set when the provider returned arguments that could not be decoded.
	ArgumentsError string `json:"-"`
}

// ToolCallResult is fed back to the LLM as the "tool" turn.
type ToolCallResult struct {
	RequestID string                 `json:"requestId"`
	Success   bool                   `json:"success"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     string                 `json:"error,omitempty"`
}
