// Package funnel decides which stage of the booking funnel a conversation is in.
package funnel

import (
	"fmt"

	"bookflow/models"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"
)

// AnyStage in a transition's From matches every stage.
const AnyStage = "*"

// Facts are what transition conditions may look at.
type Facts struct {
	Context models.SessionContext
	Events  []string // domain events emitted by the tools of the current round
}

type transition struct {
	def     models.TransitionDefinition
	program cel.Program // nil means unconditional
}

// Engine is the StageTransitionEngine. It is immutable after construction.
type Engine struct {
	initial     string
	stages      map[string]models.StageDefinition
	order       []string
	transitions []transition
	logger      *zap.Logger
}

// NewEngine validates def and compiles every transition condition.
func NewEngine(def models.FunnelDefinition, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(def.Stages) == 0 {
		return nil, fmt.Errorf("funnel: no stages defined")
	}

	e := &Engine{
		initial: def.InitialStage,
		stages:  make(map[string]models.StageDefinition, len(def.Stages)),
		logger:  logger,
	}
	for _, st := range def.Stages {
		if st.ID == "" {
			return nil, fmt.Errorf("funnel: stage with empty id")
		}
		if _, dup := e.stages[st.ID]; dup {
			return nil, fmt.Errorf("funnel: duplicate stage %q", st.ID)
		}
		e.stages[st.ID] = st
		e.order = append(e.order, st.ID)
	}
	if e.initial == "" {
		e.initial = def.Stages[0].ID
	}
	if _, ok := e.stages[e.initial]; !ok {
		return nil, fmt.Errorf("funnel: initial stage %q is not defined", e.initial)
	}

	env, err := newConditionEnv()
	if err != nil {
		return nil, fmt.Errorf("funnel: build condition environment: %w", err)
	}
	for i, td := range def.Transitions {
		if td.From != AnyStage {
			if _, ok := e.stages[td.From]; !ok {
				return nil, fmt.Errorf("funnel: transition %d: unknown from stage %q", i, td.From)
			}
		}
		if _, ok := e.stages[td.To]; !ok {
			return nil, fmt.Errorf("funnel: transition %d: unknown to stage %q", i, td.To)
		}
		tr := transition{def: td}
		if td.Condition != "" {
			prg, err := compileCondition(env, td.Condition)
			if err != nil {
				return nil, fmt.Errorf("funnel: transition %d (%s -> %s): %w", i, td.From, td.To, err)
			}
			tr.program = prg
		}
		e.transitions = append(e.transitions, tr)
	}
	return e, nil
}

// InitialStage is where new conversations start.
func (e *Engine) InitialStage() string {
	return e.initial
}

// Stage returns a stage definition.
func (e *Engine) Stage(id string) (models.StageDefinition, bool) {
	st, ok := e.stages[id]
	return st, ok
}

// Stages returns every stage in declaration order.
func (e *Engine) Stages() []models.StageDefinition {
	out := make([]models.StageDefinition, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.stages[id])
	}
	return out
}

// IsTerminal reports whether id is a terminal stage. Unknown stages are not terminal.
func (e *Engine) IsTerminal(id string) bool {
	return e.stages[id].IsTerminal
}

// HasAgent reports whether an LLM agent serves the stage.
func (e *Engine) HasAgent(id string) bool {
	return e.stages[id].HasAgent
}

// CanTransition reports whether some declared transition from -> to currently holds.
func (e *Engine) CanTransition(from, to string, f Facts) bool {
	for _, tr := range e.transitions {
		if !e.matchesFrom(tr, from) || tr.def.To != to {
			continue
		}
		if e.holds(tr, f) {
			return true
		}
	}
	return false
}

// NextStage returns the destination of the first transition out of from that holds,
// in declaration order. Self-transitions are skipped.
func (e *Engine) NextStage(from string, f Facts) (string, bool) {
	for _, tr := range e.transitions {
		if !e.matchesFrom(tr, from) || tr.def.To == from {
			continue
		}
		if e.holds(tr, f) {
			return tr.def.To, true
		}
	}
	return "", false
}

func (e *Engine) matchesFrom(tr transition, from string) bool {
	return tr.def.From == from || tr.def.From == AnyStage
}

func (e *Engine) holds(tr transition, f Facts) bool {
	if tr.program == nil {
		return true
	}
	ok, err := evalCondition(tr.program, f)
	if err != nil {
		e.logger.Warn("funnel: condition evaluation failed",
			zap.String("from", tr.def.From),
			zap.String("to", tr.def.To),
			zap.String("condition", tr.def.Condition),
			zap.Error(err))
		return false
	}
	return ok
}
