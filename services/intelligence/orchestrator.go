package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookflow/models"
	"bookflow/services/funnel"
	"bookflow/services/session"
	"bookflow/services/tools"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Loop bounds and defaults.
const (
	DefaultMaxStageDepth = 3
	DefaultMaxChainDepth = 5
	DefaultHistoryLimit  = 40

	defaultHandoffMessage = "I'm passing you to a member of our team, they will reply here shortly."
	defaultApologyMessage = "Sorry, something went wrong on our side. Please try again in a moment."
)

// Config tunes the orchestration loop.
type Config struct {
	MaxStageDepth  int
	MaxChainDepth  int
	HistoryLimit   int
	LLMTimeout     time.Duration
	HandoffMessage string
	ApologyMessage string
	BasePrompt     string
	Location       *time.Location
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	LLM      LLMProvider
	Tools    *tools.Table
	Store    *session.Store
	Funnel   *funnel.Engine
	Sessions SessionRepository
	Notifier HandoffNotifier
	Locker   *session.Locker
	Logger   *zap.Logger
	Now      func() time.Time
}

// Orchestrator is the ToolCallOrchestrator: it runs one inbound message through
// the active stage's agent, its tools and the funnel.
type Orchestrator struct {
	Deps
	cfg Config
}

// ErrInvalidMessage is returned for inbound messages missing channel, user or text.
var ErrInvalidMessage = errors.New("channel, userId and text are required")

// ErrSessionNotFound is returned when resetting a session that never existed.
var ErrSessionNotFound = errors.New("session not found")

func NewOrchestrator(deps Deps, cfg Config) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Locker == nil {
		deps.Locker = session.NewLocker()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.MaxStageDepth <= 0 {
		cfg.MaxStageDepth = DefaultMaxStageDepth
	}
	if cfg.MaxChainDepth <= 0 {
		cfg.MaxChainDepth = DefaultMaxChainDepth
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.HandoffMessage == "" {
		cfg.HandoffMessage = defaultHandoffMessage
	}
	if cfg.ApologyMessage == "" {
		cfg.ApologyMessage = defaultApologyMessage
	}
	return &Orchestrator{Deps: deps, cfg: cfg}
}

// SessionID maps a (channel, end-user) pair to its stable session id.
func SessionID(channel, userID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(channel+":"+userID)).String()
}

// HandleMessage processes one inbound message. Turns of the same session never overlap.
// Failures inside the turn degrade to an apology; only invalid input returns an error.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg models.InboundMessage) (*models.TurnResult, error) {
	if strings.TrimSpace(msg.Channel) == "" || strings.TrimSpace(msg.UserID) == "" || strings.TrimSpace(msg.Text) == "" {
		return nil, ErrInvalidMessage
	}
	sessionID := SessionID(msg.Channel, msg.UserID)
	log := o.Logger.With(zap.String("sessionId", sessionID), zap.String("channel", msg.Channel))

	unlock := o.Locker.Lock(sessionID)
	defer unlock()

	t, err := o.begin(ctx, sessionID, msg)
	if err != nil {
		log.Error("failed to load conversation", zap.Error(err))
		return &models.TurnResult{SessionID: sessionID, Reply: o.cfg.ApologyMessage, Outcome: models.OutcomeApology}, nil
	}
	t.log = log

	result := o.run(ctx, t)
	o.finish(ctx, t)
	return result, nil
}

// ResetSession sends a conversation back to the initial stage and drops its context.
// Operators use it to hand a conversation back to the agent.
func (o *Orchestrator) ResetSession(ctx context.Context, sessionID string) error {
	unlock := o.Locker.Lock(sessionID)
	defer unlock()

	sess, err := o.Sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if sess == nil {
		return fmt.Errorf("reset %s: %w", sessionID, ErrSessionNotFound)
	}
	if err := o.Store.Reset(ctx, sessionID); err != nil {
		return fmt.Errorf("reset context %s: %w", sessionID, err)
	}
	sess.CurrentStageID = o.Funnel.InitialStage()
	sess.UpdatedAt = o.Now()
	return o.Sessions.Save(ctx, sess)
}

// begin loads or creates the session and its context, and records the user message.
func (o *Orchestrator) begin(ctx context.Context, sessionID string, msg models.InboundMessage) (*turn, error) {
	sess, err := o.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	now := o.Now()
	if sess == nil {
		sess = &models.ConversationSession{
			SessionID:      sessionID,
			Channel:        msg.Channel,
			UserID:         msg.UserID,
			CurrentStageID: o.Funnel.InitialStage(),
			CreatedAt:      now,
		}
	}
	if _, ok := o.Funnel.Stage(sess.CurrentStageID); !ok {
		o.Logger.Warn("session stage no longer defined; restarting funnel",
			zap.String("sessionId", sessionID), zap.String("stage", sess.CurrentStageID))
		sess.CurrentStageID = o.Funnel.InitialStage()
	}

	sc, err := o.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.History = append(sess.History, models.ChatMessage{Role: models.RoleUser, Content: msg.Text, CreatedAt: now})
	return &turn{session: sess, sc: sc, msg: msg, startStage: sess.CurrentStageID}, nil
}

// run drives the stage loop: each stage either replies, hands over to the next
// stage, or exhausts a bound.
func (o *Orchestrator) run(ctx context.Context, t *turn) *models.TurnResult {
	continuations := 0
	for {
		stage := t.session.CurrentStageID
		if !o.Funnel.HasAgent(stage) {
			return o.handoff(ctx, t, stage)
		}

		res, err := o.runStage(ctx, t, stage)
		if err != nil {
			return o.abort(t, err)
		}

		switch r := res.(type) {
		case reply:
			return o.reply(t, r.text)
		case stageChanged:
			t.log.Info("stage changed", zap.String("from", stage), zap.String("to", r.to))
			t.session.CurrentStageID = r.to
			continuations++
			if !o.Funnel.HasAgent(r.to) {
				continue
			}
			if continuations > o.cfg.MaxStageDepth {
				t.log.Warn("stage continuation bound reached", zap.Int("bound", o.cfg.MaxStageDepth))
				return o.reply(t, t.bestText(o.cfg.ApologyMessage))
			}
		case depthExceeded:
			return o.reply(t, r.text)
		}
	}
}

func (o *Orchestrator) reply(t *turn, text string) *models.TurnResult {
	if strings.TrimSpace(text) == "" {
		text = t.bestText(o.cfg.ApologyMessage)
	}
	t.addAssistant(text, nil, o.Now())
	return &models.TurnResult{
		SessionID:   t.session.SessionID,
		StageID:     t.session.CurrentStageID,
		Reply:       text,
		Outcome:     models.OutcomeReplied,
		ToolResults: t.results,
	}
}

// abort handles a catastrophic failure. A write confirmed earlier in the turn is
// still reported; otherwise the user gets the generic apology.
func (o *Orchestrator) abort(t *turn, err error) *models.TurnResult {
	if text := t.confirmedText(); text != "" {
		t.log.Error("turn failed after a confirmed write; reporting the confirmation", zap.Error(err))
		return o.reply(t, text)
	}
	t.log.Error("turn aborted", zap.Error(err))
	t.addAssistant(o.cfg.ApologyMessage, nil, o.Now())
	return &models.TurnResult{
		SessionID:   t.session.SessionID,
		StageID:     t.session.CurrentStageID,
		Reply:       o.cfg.ApologyMessage,
		Outcome:     models.OutcomeApology,
		ToolResults: t.results,
	}
}

// handoff notifies operators when the active stage has no agent.
// Messages arriving while already handed off are forwarded without a bot reply.
func (o *Orchestrator) handoff(ctx context.Context, t *turn, stage string) *models.TurnResult {
	payload := models.HandoffPayload{
		SessionID:   t.session.SessionID,
		StageID:     stage,
		Channel:     t.msg.Channel,
		UserID:      t.msg.UserID,
		LastMessage: t.msg.Text,
		Reason:      t.handoffReason(),
	}
	if o.Notifier != nil {
		if err := o.Notifier.NotifyHandoff(ctx, payload); err != nil {
			t.log.Error("failed to enqueue hand-off", zap.Error(err))
		} else {
			t.log.Info("hand-off enqueued", zap.String("stage", stage))
		}
	}

	text := ""
	if t.startStage != stage {
		text = o.cfg.HandoffMessage
		if confirmed := t.confirmedText(); confirmed != "" {
			text = confirmed + "\n" + text
		}
		t.addAssistant(text, nil, o.Now())
	}
	return &models.TurnResult{
		SessionID:   t.session.SessionID,
		StageID:     stage,
		Reply:       text,
		Outcome:     models.OutcomeHandoff,
		Handoff:     true,
		ToolResults: t.results,
	}
}

// finish trims and persists the session. The context was persisted as it was merged.
func (o *Orchestrator) finish(ctx context.Context, t *turn) {
	t.session.History = trimHistory(t.session.History, o.cfg.HistoryLimit)
	t.session.UpdatedAt = o.Now()
	if err := o.Sessions.Save(ctx, t.session); err != nil {
		t.log.Error("failed to save session", zap.Error(err))
	}
}
