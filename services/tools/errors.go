package tools

import "fmt"

// ErrorKind is the taxonomy of tool-level failures.
type ErrorKind string

const (
	ErrValidation  ErrorKind = "validation"
	ErrNotFound    ErrorKind = "not_found"
	ErrDomainGuard ErrorKind = "domain_guard"
	ErrUpstream    ErrorKind = "upstream"
)

// ToolError is returned by handlers and converted into a success:false result.
// Data is merged into the result so the agent can act on it (e.g. a corrected id).
type ToolError struct {
	Kind    ErrorKind
	Message string
	Data    map[string]interface{}
}

func (e *ToolError) Error() string {
	return e.Message
}

func validationError(format string, args ...interface{}) *ToolError {
	return &ToolError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...interface{}) *ToolError {
	return &ToolError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func upstreamError(op string, err error) *ToolError {
	return &ToolError{Kind: ErrUpstream, Message: fmt.Sprintf("%s failed: %v", op, err)}
}
