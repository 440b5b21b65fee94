package ai

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bookflow/models"
	"bookflow/services/funnel"
	"bookflow/services/scheduling"
	"bookflow/services/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slotsOffered() models.SchedulingContext {
	return models.SchedulingContext{
		SelectedResourceID: "88",
		SelectedLocationID: "1",
		SelectedDateYmd:    testDay,
		SlotsByDate:        map[string][]string{testDay: {"09:00", "09:30"}},
		SlotsResourceID:    "88",
		SlotsLocationID:    "1",
	}
}

func TestHandleMessage_PlainReply(t *testing.T) {
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), funnel.DefaultDefinition(), say("Hola, ¿en qué te ayudo?"))

	res, err := h.orch.HandleMessage(context.Background(), inbound("hola"))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeReplied, res.Outcome)
	assert.Equal(t, "Hola, ¿en qué te ayudo?", res.Reply)
	assert.Equal(t, funnel.StageGreeting, res.StageID)
	assert.Equal(t, sid(), res.SessionID)

	sess := h.session(t)
	require.Len(t, sess.History, 2)
	assert.Equal(t, models.RoleUser, sess.History[0].Role)
	assert.Equal(t, models.RoleAssistant, sess.History[1].Role)

	require.Equal(t, 1, h.llm.callCount())
	req := h.llm.calls[0]
	assert.Len(t, req.Tools, 6)
	assert.Contains(t, req.SystemPrompt, "2026-10-15")
	assert.Contains(t, req.SystemPrompt, "Greet the patient")
}

func TestHandleMessage_RejectsIncompleteMessage(t *testing.T) {
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), funnel.DefaultDefinition(), say("unused"))

	_, err := h.orch.HandleMessage(context.Background(), models.InboundMessage{Channel: testChannel, UserID: testUser, Text: "   "})
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, 0, h.llm.callCount())
}

func TestHandleMessage_SingleMatchSelectsResourceAndAdvancesStage(t *testing.T) {
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), funnel.DefaultDefinition(),
		callTool(tools.ListResources, map[string]interface{}{"searchName": "Dr. Y"}),
		say("¿Qué día te acomoda?"),
	)

	res, err := h.orch.HandleMessage(context.Background(), inbound("quiero hora con el Dr. Y"))
	require.NoError(t, err)

	assert.Equal(t, funnel.StageScheduling, res.StageID)
	assert.Equal(t, "¿Qué día te acomoda?", res.Reply)
	assert.Equal(t, funnel.StageScheduling, h.session(t).CurrentStageID)

	sc := h.context(t)
	assert.Equal(t, "88", sc.SelectedResourceID)
	assert.Equal(t, "1", sc.SelectedLocationID)

	require.Equal(t, 2, h.llm.callCount())
	assert.Len(t, h.llm.calls[1].Tools, 11)
	assert.Contains(t, h.llm.calls[1].SystemPrompt, "selected resourceId: 88")
}

func TestHandleMessage_OrdinalReferenceUsesLastListing(t *testing.T) {
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), funnel.DefaultDefinition(),
		callTool(tools.GetAvailableSlots, map[string]interface{}{"resourceId": "2", "locationId": "1"}),
		say("Tengo estos horarios"),
	)
	h.preset(t, funnel.StageScheduling, models.SchedulingContext{
		LastListedResources: []models.ListedResource{
			{ID: "77", DisplayName: "Dr. X", LocationID: "1"},
			{ID: "88", DisplayName: "Dr. Y", LocationID: "1"},
		},
	})

	res, err := h.orch.HandleMessage(context.Background(), inbound("el segundo"))
	require.NoError(t, err)

	require.Len(t, res.ToolResults, 1)
	assert.True(t, res.ToolResults[0].Success)
	assert.Equal(t, "88", res.ToolResults[0].Data["resourceId"])
	assert.Equal(t, "Tengo estos horarios", res.Reply)

	sc := h.context(t)
	assert.Equal(t, "88", sc.SlotsResourceID)
	assert.Equal(t, []string{"09:00", "09:30"}, sc.SlotsByDate[testDay])
}

func TestHandleMessage_BookingClearsContextAndFallsBackToSummary(t *testing.T) {
	provider := scheduling.NewMemoryProvider(testSeed())
	h := newHarness(t, provider, funnel.DefaultDefinition(),
		callTool(tools.CreateBooking, map[string]interface{}{"timeHhmm": "09:30"}),
		say(""),
	)
	h.preset(t, funnel.StageScheduling, slotsOffered())

	res, err := h.orch.HandleMessage(context.Background(), inbound("a las 9:30"))
	require.NoError(t, err)

	bookings := provider.Bookings()
	require.Len(t, bookings, 1)
	assert.Equal(t, "09:30", bookings[0].TimeHhmm)
	assert.Equal(t, testPhone, bookings[0].Contact.Phone)

	assert.Equal(t, models.OutcomeReplied, res.Outcome)
	assert.Equal(t, funnel.StageConfirmed, res.StageID)
	assert.Contains(t, res.Reply, bookings[0].ConfirmationCode)

	sc := h.context(t)
	assert.Empty(t, sc.SelectedResourceID)
	assert.Empty(t, sc.SelectedLocationID)
	assert.Empty(t, sc.SelectedDateYmd)
	assert.Empty(t, sc.SlotsByDate)
}

func TestHandleMessage_TerminalActionIgnoresFollowUpCalls(t *testing.T) {
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), funnel.DefaultDefinition(),
		callTool(tools.ListResources, nil),
		func(CompletionRequest) (*Completion, error) {
			return &Completion{
				Text:      "Tengo tres profesionales disponibles.",
				ToolCalls: []models.ToolCallRequest{{Name: tools.ListLocations}},
			}, nil
		},
	)

	res, err := h.orch.HandleMessage(context.Background(), inbound("¿qué profesionales hay?"))
	require.NoError(t, err)

	assert.Equal(t, "Tengo tres profesionales disponibles.", res.Reply)
	assert.Len(t, res.ToolResults, 1)
	assert.Equal(t, 2, h.llm.callCount())
	assert.Equal(t, funnel.StageGreeting, res.StageID)

	last := h.session(t).History[len(h.session(t).History)-1]
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Empty(t, last.ToolCalls)
}

func toolNames(defs []models.ToolDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Name
	}
	return out
}

func stageTools(t *testing.T, id string) []string {
	t.Helper()
	for _, st := range funnel.DefaultDefinition().Stages {
		if st.ID == id {
			return st.ToolNames
		}
	}
	t.Fatalf("stage %s not in default funnel", id)
	return nil
}

func TestHandleMessage_TerminalReadThenStageChangeRepliesOnce(t *testing.T) {
	provider := scheduling.NewMemoryProvider(testSeed())
	h := newHarness(t, provider, funnel.DefaultDefinition(),
		callTool(tools.ListResources, map[string]interface{}{"searchName": "Dr. Y"}),
		callTool(tools.GetAvailableSlots, map[string]interface{}{"resourceId": "88", "locationId": "1"}),
		callTool(tools.CreateBooking, map[string]interface{}{"timeHhmm": "09:00"}),
	)

	res, err := h.orch.HandleMessage(context.Background(), inbound("quiero hora con el Dr. Y"))
	require.NoError(t, err)

	assert.Equal(t, 2, h.llm.callCount())
	require.Len(t, res.ToolResults, 1)
	assert.True(t, res.ToolResults[0].Success)
	assert.Equal(t, funnel.StageScheduling, res.StageID)
	assert.NotEmpty(t, res.Reply)
	assert.Empty(t, provider.Bookings())

	assert.ElementsMatch(t, stageTools(t, funnel.StageScheduling), toolNames(h.llm.calls[1].Tools))
	assert.Empty(t, h.context(t).SlotsByDate)

	history := h.session(t).History
	last := history[len(history)-1]
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Empty(t, last.ToolCalls)
}

func TestHandleMessage_BookingThenStageChangeRunsNoFurtherTools(t *testing.T) {
	provider := scheduling.NewMemoryProvider(testSeed())
	h := newHarness(t, provider, funnel.DefaultDefinition(),
		callTool(tools.CreateBooking, map[string]interface{}{"timeHhmm": "09:30"}),
		callTool(tools.RescheduleBooking, map[string]interface{}{"bookingId": "x", "newDateYmd": testDay, "newTime": "09:00"}),
		callTool(tools.ListContactBookings, map[string]interface{}{"contactPhone": testPhone}),
	)
	h.preset(t, funnel.StageScheduling, slotsOffered())

	res, err := h.orch.HandleMessage(context.Background(), inbound("a las 9:30"))
	require.NoError(t, err)

	bookings := provider.Bookings()
	require.Len(t, bookings, 1)
	assert.Equal(t, "09:30", bookings[0].TimeHhmm)

	assert.Equal(t, 2, h.llm.callCount())
	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, funnel.StageConfirmed, res.StageID)
	assert.Equal(t, models.OutcomeReplied, res.Outcome)
	assert.Contains(t, res.Reply, bookings[0].ConfirmationCode)
	assert.ElementsMatch(t, stageTools(t, funnel.StageConfirmed), toolNames(h.llm.calls[1].Tools))
}

func TestHandleMessage_ChainingBound(t *testing.T) {
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), funnel.DefaultDefinition(),
		callTool(tools.FindContact, map[string]interface{}{"phone": testPhone}),
	)

	res, err := h.orch.HandleMessage(context.Background(), inbound("¿estoy registrada?"))
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxChainDepth+1, h.llm.callCount())
	assert.Len(t, res.ToolResults, DefaultMaxChainDepth)
	assert.Equal(t, models.OutcomeReplied, res.Outcome)
	assert.NotEmpty(t, res.Reply)

	history := h.session(t).History
	last := history[len(history)-1]
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Empty(t, last.ToolCalls)
}

func TestHandleMessage_ConfirmedBookingSurvivesLLMFailure(t *testing.T) {
	provider := scheduling.NewMemoryProvider(testSeed())
	h := newHarness(t, provider, funnel.DefaultDefinition(),
		callTool(tools.CreateBooking, map[string]interface{}{"timeHhmm": "09:00"}),
		fail(errors.New("llm unavailable")),
	)
	h.preset(t, funnel.StageScheduling, slotsOffered())

	res, err := h.orch.HandleMessage(context.Background(), inbound("a las 9"))
	require.NoError(t, err)

	bookings := provider.Bookings()
	require.Len(t, bookings, 1)
	assert.Equal(t, models.OutcomeReplied, res.Outcome)
	assert.Contains(t, res.Reply, bookings[0].ConfirmationCode)
	assert.NotEqual(t, "Sorry, try again.", res.Reply)
}

func TestHandleMessage_LocalPanicAfterBookingStillReportsBooking(t *testing.T) {
	provider := &panickyProvider{MemoryProvider: scheduling.NewMemoryProvider(testSeed())}
	h := newHarness(t, provider, funnel.DefaultDefinition(),
		callTool(tools.CreateBooking, map[string]interface{}{"timeHhmm": "09:00"}),
		say(""),
	)
	h.preset(t, funnel.StageScheduling, slotsOffered())

	res, err := h.orch.HandleMessage(context.Background(), inbound("a las 9"))
	require.NoError(t, err)

	bookings := provider.Bookings()
	require.Len(t, bookings, 1)
	require.Len(t, res.ToolResults, 1)
	assert.True(t, res.ToolResults[0].Success)
	assert.Equal(t, bookings[0].ID, res.ToolResults[0].Data["bookingId"])
	assert.Contains(t, res.Reply, bookings[0].ID)
	assert.Equal(t, funnel.StageConfirmed, res.StageID)
}

func TestHandleMessage_ApologyWhenLLMFails(t *testing.T) {
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), funnel.DefaultDefinition(),
		fail(errors.New("quota exceeded")),
	)

	res, err := h.orch.HandleMessage(context.Background(), inbound("hola"))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeApology, res.Outcome)
	assert.Equal(t, "Sorry, try again.", res.Reply)

	history := h.session(t).History
	require.Len(t, history, 2)
	assert.Equal(t, "Sorry, try again.", history[1].Content)
}

func TestHandleMessage_HandoffAndReset(t *testing.T) {
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), funnel.DefaultDefinition(),
		callTool(tools.RequestHumanAgent, map[string]interface{}{"reason": "quiere hablar con una persona"}),
	)
	ctx := context.Background()

	res, err := h.orch.HandleMessage(ctx, inbound("quiero hablar con alguien"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeHandoff, res.Outcome)
	assert.True(t, res.Handoff)
	assert.Equal(t, funnel.StageHumanHandoff, res.StageID)
	assert.Equal(t, "An operator will reply shortly.", res.Reply)

	require.Len(t, h.notifier.payloads, 1)
	assert.Equal(t, "quiere hablar con una persona", h.notifier.payloads[0].Reason)
	assert.Equal(t, sid(), h.notifier.payloads[0].SessionID)

	res, err = h.orch.HandleMessage(ctx, inbound("¿hola?"))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeHandoff, res.Outcome)
	assert.Empty(t, res.Reply)
	assert.Equal(t, 1, h.llm.callCount())
	require.Len(t, h.notifier.payloads, 2)
	assert.Equal(t, "¿hola?", h.notifier.payloads[1].LastMessage)

	require.NoError(t, h.orch.ResetSession(ctx, sid()))
	assert.Equal(t, funnel.StageGreeting, h.session(t).CurrentStageID)
}

func TestResetSession_UnknownSession(t *testing.T) {
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), funnel.DefaultDefinition(), say("unused"))
	assert.ErrorIs(t, h.orch.ResetSession(context.Background(), "missing"), ErrSessionNotFound)
}

func TestHandleMessage_StageContinuationBound(t *testing.T) {
	stage := func(id string) models.StageDefinition {
		return models.StageDefinition{ID: id, HasAgent: true, ToolNames: []string{tools.FindContact}}
	}
	def := models.FunnelDefinition{
		InitialStage: "a",
		Stages:       []models.StageDefinition{stage("a"), stage("b"), stage("c"), stage("d"), stage("e")},
		Transitions: []models.TransitionDefinition{
			{From: "a", To: "b"}, {From: "b", To: "c"}, {From: "c", To: "d"}, {From: "d", To: "e"},
		},
	}
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), def,
		callTool(tools.FindContact, map[string]interface{}{"phone": testPhone}),
	)

	res, err := h.orch.HandleMessage(context.Background(), inbound("hola"))
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxStageDepth+1, h.llm.callCount())
	assert.Len(t, res.ToolResults, DefaultMaxStageDepth+1)
	assert.Equal(t, "e", res.StageID)
	assert.Equal(t, models.OutcomeReplied, res.Outcome)
	assert.NotEmpty(t, res.Reply)
}

func TestHandleMessage_UnknownStoredStageRestartsFunnel(t *testing.T) {
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), funnel.DefaultDefinition(), say("Hola de nuevo"))
	h.preset(t, "retired_stage", models.SchedulingContext{})

	res, err := h.orch.HandleMessage(context.Background(), inbound("hola"))
	require.NoError(t, err)
	assert.Equal(t, funnel.StageGreeting, res.StageID)
}

// blockingLLM records how many completions of one session run at once.
type blockingLLM struct {
	active  int32
	maxSeen int32
}

func (b *blockingLLM) Complete(context.Context, CompletionRequest) (*Completion, error) {
	n := atomic.AddInt32(&b.active, 1)
	for {
		seen := atomic.LoadInt32(&b.maxSeen)
		if n <= seen || atomic.CompareAndSwapInt32(&b.maxSeen, seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&b.active, -1)
	return &Completion{Text: "ok"}, nil
}

func TestHandleMessage_TurnsOfOneSessionAreSerialized(t *testing.T) {
	h := newHarness(t, scheduling.NewMemoryProvider(testSeed()), funnel.DefaultDefinition(), say("unused"))
	llm := &blockingLLM{}
	h.orch.LLM = llm

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.orch.HandleMessage(context.Background(), inbound("hola"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&llm.maxSeen))
	assert.Len(t, h.session(t).History, 10)
}

func TestSessionID_IsStablePerChannelAndUser(t *testing.T) {
	assert.Equal(t, SessionID("whatsapp", "u-1"), SessionID("whatsapp", "u-1"))
	assert.NotEqual(t, SessionID("whatsapp", "u-1"), SessionID("webchat", "u-1"))
	assert.NotEqual(t, SessionID("whatsapp", "u-1"), SessionID("whatsapp", "u-2"))
}
