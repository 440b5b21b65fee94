package ai

import (
	"context"
	"sync"
	"testing"
	"time"

	conversationRepo "bookflow/database/repository/conversation"
	"bookflow/models"
	"bookflow/services/funnel"
	"bookflow/services/guard"
	"bookflow/services/scheduling"
	"bookflow/services/session"
	"bookflow/services/tools"

	"github.com/stretchr/testify/require"
)

const (
	testChannel = "whatsapp"
	testUser    = "u-1"
	testPhone   = "+56911112222"
	testDay     = "2026-10-16"
)

type step func(req CompletionRequest) (*Completion, error)

func say(text string) step {
	return func(CompletionRequest) (*Completion, error) { return &Completion{Text: text}, nil }
}

func callTool(name string, args map[string]interface{}) step {
	return func(CompletionRequest) (*Completion, error) {
		return &Completion{ToolCalls: []models.ToolCallRequest{{Name: name, Arguments: args}}}, nil
	}
}

func fail(err error) step {
	return func(CompletionRequest) (*Completion, error) { return nil, err }
}

// scriptedLLM replays steps in order and repeats the last one when it runs out.
type scriptedLLM struct {
	mu    sync.Mutex
	steps []step
	calls []CompletionRequest
}

func (s *scriptedLLM) Complete(_ context.Context, req CompletionRequest) (*Completion, error) {
	s.mu.Lock()
	req.History = append([]models.ChatMessage(nil), req.History...)
	s.calls = append(s.calls, req)
	i := len(s.calls) - 1
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	next := s.steps[i]
	s.mu.Unlock()
	return next(req)
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingNotifier struct {
	mu       sync.Mutex
	payloads []models.HandoffPayload
}

func (n *recordingNotifier) NotifyHandoff(_ context.Context, p models.HandoffPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
	return nil
}

func testSeed() scheduling.Seed {
	return scheduling.Seed{
		Locations: []models.Location{
			{ID: "1", Name: "Centro", Enabled: true},
			{ID: "2", Name: "Norte", Enabled: true},
		},
		Resources: []models.Resource{
			{ID: "77", DisplayName: "Dr. X", Category: "Medicina general", IntervalMinutes: 20, Enabled: true},
			{ID: "88", DisplayName: "Dr. Y", Category: "Medicina general", IntervalMinutes: 40, Enabled: true},
			{ID: "99", DisplayName: "Dra. Z", Category: "Odontología", LocationID: "2", IntervalMinutes: 30, Enabled: true},
		},
		Slots: []models.Slot{
			{ResourceID: "88", LocationID: "1", Date: testDay, Time: "09:00"},
			{ResourceID: "88", LocationID: "1", Date: testDay, Time: "09:30"},
		},
		Contacts: []models.Contact{{ID: "c1", Name: "Ana Pérez", Phone: testPhone}},
	}
}

type harness struct {
	orch     *Orchestrator
	llm      *scriptedLLM
	store    *session.Store
	repo     *conversationRepo.MemoryConversationRepo
	notifier *recordingNotifier
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
}

func newHarness(t *testing.T, provider scheduling.Provider, def models.FunnelDefinition, steps ...step) *harness {
	t.Helper()
	table, err := tools.NewDefaultTable(tools.Deps{
		Provider: provider,
		Rules:    guard.Rules{ConfinedCategory: "Odontología", ConfinedLocationID: "2", DefaultLocationID: "1"},
		Now:      fixedNow,
	})
	require.NoError(t, err)
	engine, err := funnel.NewEngine(def, nil)
	require.NoError(t, err)

	h := &harness{
		llm:      &scriptedLLM{steps: steps},
		store:    session.NewStore(session.NewMemoryBackend(), nil),
		repo:     conversationRepo.NewMemoryConversationRepo(),
		notifier: &recordingNotifier{},
	}
	h.orch = NewOrchestrator(Deps{
		LLM:      h.llm,
		Tools:    table,
		Store:    h.store,
		Funnel:   engine,
		Sessions: h.repo,
		Notifier: h.notifier,
		Now:      fixedNow,
	}, Config{HandoffMessage: "An operator will reply shortly.", ApologyMessage: "Sorry, try again."})
	return h
}

func inbound(text string) models.InboundMessage {
	return models.InboundMessage{Channel: testChannel, UserID: testUser, Text: text, ContactName: "Ana Pérez", ContactPhone: testPhone}
}

func sid() string {
	return SessionID(testChannel, testUser)
}

// preset stores a conversation already sitting in stage with the given context.
func (h *harness) preset(t *testing.T, stage string, sc models.SchedulingContext) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.repo.Save(ctx, &models.ConversationSession{SessionID: sid(), Channel: testChannel, UserID: testUser, CurrentStageID: stage}))
	patch := &models.ContextPatch{
		SelectedLocationID:  models.StringPtr(sc.SelectedLocationID),
		SelectedResourceID:  models.StringPtr(sc.SelectedResourceID),
		SelectedDateYmd:     models.StringPtr(sc.SelectedDateYmd),
		SlotsByDate:         sc.SlotsByDate,
		SlotsResourceID:     models.StringPtr(sc.SlotsResourceID),
		SlotsLocationID:     models.StringPtr(sc.SlotsLocationID),
		LastListedResources: sc.LastListedResources,
		Reason:              "test",
	}
	_, err := h.store.Merge(ctx, sid(), models.SessionContext{}, patch)
	require.NoError(t, err)
}

func (h *harness) context(t *testing.T) models.SchedulingContext {
	t.Helper()
	sc, err := h.store.Load(context.Background(), sid())
	require.NoError(t, err)
	return sc.Scheduling
}

func (h *harness) session(t *testing.T) *models.ConversationSession {
	t.Helper()
	s, err := h.repo.Get(context.Background(), sid())
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

// panickyProvider crashes the post-booking summary step.
type panickyProvider struct {
	*scheduling.MemoryProvider
	booked bool
}

func (p *panickyProvider) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	b, err := p.MemoryProvider.CreateBooking(ctx, req)
	p.booked = err == nil
	return b, err
}

func (p *panickyProvider) ListLocations(ctx context.Context) ([]models.Location, error) {
	if p.booked {
		panic("template engine exploded")
	}
	return p.MemoryProvider.ListLocations(ctx)
}
