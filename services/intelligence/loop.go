package ai

import (
	"context"
	"fmt"

	"bookflow/models"
	"bookflow/services/funnel"
	"bookflow/services/tools"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stageResult is how one stage run ends: reply, stageChanged or depthExceeded.
type stageResult interface {
	stageResult()
}

type reply struct{ text string }

type stageChanged struct{ to string }

type depthExceeded struct{ text string }

func (reply) stageResult()         {}
func (stageChanged) stageResult()  {}
func (depthExceeded) stageResult() {}

// runStage runs the call → dispatch → chain loop for one stage.
// Once a terminal action succeeded, entering a stage only yields the closing reply.
// The returned error is catastrophic: the LLM could not be reached.
func (o *Orchestrator) runStage(ctx context.Context, t *turn, stageID string) (stageResult, error) {
	def, _ := o.Funnel.Stage(stageID)
	names := def.ToolNames
	if names == nil {
		names = []string{}
	}
	toolDefs := o.Tools.Definitions(names)

	if t.terminal {
		return o.closingReply(ctx, t, def, toolDefs)
	}

	for {
		comp, err := o.complete(ctx, t, def, toolDefs)
		if err != nil {
			return nil, err
		}
		if len(comp.ToolCalls) == 0 {
			return reply{text: comp.Text}, nil
		}

		if t.rounds >= o.cfg.MaxChainDepth {
			t.log.Warn("chaining bound reached; ignoring further tool calls",
				zap.Int("bound", o.cfg.MaxChainDepth),
				zap.Int("ignoredCalls", len(comp.ToolCalls)))
			return depthExceeded{text: firstText(comp.Text, t.bestText(o.cfg.ApologyMessage))}, nil
		}

		calls := withIDs(comp.ToolCalls)
		t.addAssistant(comp.Text, calls, o.Now())
		terminal, events := o.dispatch(ctx, t, calls)
		if terminal {
			t.terminal = true
		}

		if next, moved := o.Funnel.NextStage(stageID, funnel.Facts{Context: t.sc, Events: events}); moved {
			return stageChanged{to: next}, nil
		}
		if t.terminal {
			return o.closingReply(ctx, t, def, toolDefs)
		}
	}
}

// closingReply asks for the single completion allowed after a terminal action.
// Tool calls it proposes are dropped.
func (o *Orchestrator) closingReply(ctx context.Context, t *turn, def models.StageDefinition, toolDefs []models.ToolDefinition) (stageResult, error) {
	final, err := o.complete(ctx, t, def, toolDefs)
	if err != nil {
		return nil, err
	}
	if len(final.ToolCalls) > 0 {
		t.log.Info("ignoring tool calls proposed after a terminal action",
			zap.String("stage", def.ID), zap.Int("count", len(final.ToolCalls)))
	}
	return reply{text: firstText(final.Text, t.bestText(o.cfg.ApologyMessage))}, nil
}

// dispatch executes one round of tool calls, merging every patch into the
// session context as it lands.
func (o *Orchestrator) dispatch(ctx context.Context, t *turn, calls []models.ToolCallRequest) (terminal bool, events []string) {
	t.rounds++
	for _, call := range calls {
		out := o.Tools.Execute(ctx, call, tools.Invocation{
			SessionID:   t.session.SessionID,
			Context:     t.sc.Clone(),
			Utterance:   t.msg.Text,
			CallerName:  t.msg.ContactName,
			CallerPhone: t.msg.ContactPhone,
		})

		if out.Result.Success && out.Patch != nil {
			merged, err := o.Store.Merge(ctx, t.session.SessionID, t.sc, out.Patch)
			if err != nil {
				t.log.Error("failed to persist session context", zap.String("tool", call.Name), zap.Error(err))
			}
			t.sc = merged
		}
		if out.Recovered {
			t.log.Error("write confirmed upstream survived a local fault",
				zap.String("tool", call.Name), zap.Any("bookingId", out.Result.Data["bookingId"]))
		}

		t.addToolResult(call, out.Result, o.Now())
		if out.Result.Success {
			if out.Kind == tools.KindWrite {
				t.confirmed = append(t.confirmed, out.Result)
			}
			if out.Terminal {
				terminal = true
			}
			events = append(events, out.Events...)
		}
	}
	return terminal, events
}

func (o *Orchestrator) complete(ctx context.Context, t *turn, stage models.StageDefinition, toolDefs []models.ToolDefinition) (*Completion, error) {
	if o.cfg.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.LLMTimeout)
		defer cancel()
	}
	comp, err := o.LLM.Complete(ctx, CompletionRequest{
		SystemPrompt: o.systemPrompt(stage, t.sc),
		History:      t.session.History,
		Tools:        toolDefs,
	})
	if err != nil {
		return nil, fmt.Errorf("llm completion in stage %s: %w", stage.ID, err)
	}
	if comp == nil {
		return &Completion{}, nil
	}
	return comp, nil
}

// withIDs gives every tool call an id so results can be paired with it.
func withIDs(calls []models.ToolCallRequest) []models.ToolCallRequest {
	out := make([]models.ToolCallRequest, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = "call_" + uuid.NewString()
		}
		out[i] = c
	}
	return out
}
