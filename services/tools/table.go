package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bookflow/models"

	"go.uber.org/zap"
)

// Invocation is the read-only view of the conversation a handler runs against.
// Handlers never mutate it; they describe changes through Response.Patch.
type Invocation struct {
	SessionID   string
	Context     models.SessionContext
	Utterance   string // latest user message
	CallerName  string // display name known to the channel
	CallerPhone string // phone known to the channel
}

// Response is what a handler produces on success.
type Response struct {
	Data   map[string]interface{}
	Patch  *models.ContextPatch
	Events []string
}

// Call is passed to a handler for one tool invocation.
type Call struct {
	Name string
	Args Args
	Invocation

	confirmed *Response
}

// Confirm records that the upstream side effect already happened.
// If the handler fails or panics afterwards, the confirmed response is reported instead.
func (c *Call) Confirm(r *Response) {
	c.confirmed = r
}

// HandlerFunc executes one tool.
type HandlerFunc func(ctx context.Context, call *Call) (*Response, error)

// Entry is one row of the dispatch table.
type Entry struct {
	Definition models.ToolDefinition
	Kind       Kind
	// Terminal tools stop the chaining loop once they succeed.
	Terminal bool
	Handler  HandlerFunc
}

// Outcome is the result of Execute, enriched with what the orchestrator needs to proceed.
type Outcome struct {
	Result   models.ToolCallResult
	Kind     Kind
	Terminal bool
	Patch    *models.ContextPatch
	Events   []string
	// Recovered is set when a confirmed write survived a later local fault.
	Recovered bool
}

// Table maps tool names to entries.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
	logger  *zap.Logger
}

func NewTable(logger *zap.Logger) *Table {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{entries: make(map[string]Entry), logger: logger}
}

// Register adds an entry. Names must be unique.
func (t *Table) Register(e Entry) error {
	name := e.Definition.Name
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if e.Handler == nil {
		return fmt.Errorf("handler is required for %s", name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	t.entries[name] = e
	t.order = append(t.order, name)
	return nil
}

// Lookup returns the entry for a tool name.
func (t *Table) Lookup(name string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[name]
	return e, ok
}

// Definitions returns the catalog entries for names, in the given order.
// Unknown names are skipped. A nil slice returns every registered tool.
func (t *Table) Definitions(names []string) []models.ToolDefinition {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if names == nil {
		names = t.order
	}
	defs := make([]models.ToolDefinition, 0, len(names))
	for _, n := range names {
		if e, ok := t.entries[n]; ok {
			defs = append(defs, e.Definition)
		}
	}
	return defs
}

// Execute runs one tool call. It never returns an error: every failure becomes
// a success:false result fed back to the agent.
func (t *Table) Execute(ctx context.Context, req models.ToolCallRequest, inv Invocation) (out Outcome) {
	log := t.logger.With(zap.String("sessionId", inv.SessionID), zap.String("tool", req.Name), zap.String("callId", req.ID))
	out.Result.RequestID = req.ID

	entry, ok := t.Lookup(req.Name)
	if !ok {
		log.Warn("unknown tool requested")
		out.Result.Error = fmt.Sprintf("unknown tool %q", req.Name)
		return out
	}
	out.Kind = entry.Kind

	if req.ArgumentsError != "" {
		out.Result.Error = "arguments could not be parsed: " + req.ArgumentsError
		out.Result.Data = map[string]interface{}{"errorKind": string(ErrValidation)}
		return out
	}

	call := &Call{Name: req.Name, Args: normalize(req.Name, req.Arguments), Invocation: inv}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in %s: %v", req.Name, r)
			out = t.fail(log, entry, req.ID, call, err)
		}
	}()

	resp, err := entry.Handler(ctx, call)
	if err != nil {
		return t.fail(log, entry, req.ID, call, err)
	}
	if resp == nil {
		resp = &Response{}
	}
	return t.succeed(entry, req.ID, resp)
}

func (t *Table) succeed(entry Entry, requestID string, resp *Response) Outcome {
	data := resp.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	return Outcome{
		Result:   models.ToolCallResult{RequestID: requestID, Success: true, Data: data},
		Kind:     entry.Kind,
		Terminal: entry.Terminal,
		Patch:    resp.Patch,
		Events:   resp.Events,
	}
}

func (t *Table) fail(log *zap.Logger, entry Entry, requestID string, call *Call, err error) Outcome {
	if call.confirmed != nil {
		log.Error("tool faulted after upstream confirmation; reporting confirmed result",
			zap.Any("booking", call.confirmed.Data["bookingId"]), zap.Error(err))
		out := t.succeed(entry, requestID, call.confirmed)
		out.Recovered = true
		return out
	}

	out := Outcome{Kind: entry.Kind, Result: models.ToolCallResult{RequestID: requestID, Success: false, Error: err.Error()}}
	var te *ToolError
	if errors.As(err, &te) {
		data := map[string]interface{}{"errorKind": string(te.Kind)}
		for k, v := range te.Data {
			data[k] = v
		}
		out.Result.Data = data
		log.Info("tool returned failure", zap.String("kind", string(te.Kind)), zap.String("error", te.Message))
	} else {
		log.Error("tool failed", zap.Error(err))
	}
	return out
}
