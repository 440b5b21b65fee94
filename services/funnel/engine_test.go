package funnel

import (
	"testing"

	"bookflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withResource(id string) models.SessionContext {
	return models.SessionContext{Scheduling: models.SchedulingContext{SelectedResourceID: id}}
}

func TestDefaultFunnelCompiles(t *testing.T) {
	e, err := NewEngine(DefaultDefinition(), nil)
	require.NoError(t, err)

	assert.Equal(t, StageGreeting, e.InitialStage())
	assert.True(t, e.HasAgent(StageGreeting))
	assert.False(t, e.HasAgent(StageHumanHandoff))
	assert.True(t, e.IsTerminal(StageHumanHandoff))
	assert.False(t, e.IsTerminal(StageScheduling))
	assert.Len(t, e.Stages(), 4)
}

func TestNextStage(t *testing.T) {
	e, err := NewEngine(DefaultDefinition(), nil)
	require.NoError(t, err)

	_, moved := e.NextStage(StageGreeting, Facts{})
	assert.False(t, moved)

	to, moved := e.NextStage(StageGreeting, Facts{Context: withResource("88")})
	assert.True(t, moved)
	assert.Equal(t, StageScheduling, to)

	to, moved = e.NextStage(StageScheduling, Facts{Events: []string{"booking_created"}})
	assert.True(t, moved)
	assert.Equal(t, StageConfirmed, to)

	// declaration order: the wildcard hand-off wins over the resource condition
	to, moved = e.NextStage(StageGreeting, Facts{Context: withResource("88"), Events: []string{"human_requested"}})
	assert.True(t, moved)
	assert.Equal(t, StageHumanHandoff, to)

	// no self transition out of the hand-off stage
	_, moved = e.NextStage(StageHumanHandoff, Facts{Events: []string{"human_requested"}})
	assert.False(t, moved)
}

func TestCanTransition(t *testing.T) {
	e, err := NewEngine(DefaultDefinition(), nil)
	require.NoError(t, err)

	assert.True(t, e.CanTransition(StageGreeting, StageScheduling, Facts{Context: withResource("1")}))
	assert.False(t, e.CanTransition(StageGreeting, StageScheduling, Facts{}))
	assert.False(t, e.CanTransition(StageGreeting, StageConfirmed, Facts{Events: []string{"booking_created"}}))
	assert.True(t, e.CanTransition(StageConfirmed, StageHumanHandoff, Facts{Events: []string{"human_requested"}}))
}

func TestUnconditionalTransition(t *testing.T) {
	e, err := NewEngine(models.FunnelDefinition{
		Stages: []models.StageDefinition{{ID: "a", HasAgent: true}, {ID: "b"}},
		Transitions: []models.TransitionDefinition{
			{From: "a", To: "b"},
		},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "a", e.InitialStage())
	to, moved := e.NextStage("a", Facts{})
	assert.True(t, moved)
	assert.Equal(t, "b", to)
}

func TestConditionOverListings(t *testing.T) {
	e, err := NewEngine(models.FunnelDefinition{
		Stages: []models.StageDefinition{{ID: "a", HasAgent: true}, {ID: "b", HasAgent: true}},
		Transitions: []models.TransitionDefinition{
			{From: "a", To: "b", Condition: `size(ctx.lastListedResources) > 1 && ctx.slotsByDate.size() == 0`},
		},
	}, nil)
	require.NoError(t, err)

	sc := models.SessionContext{Scheduling: models.SchedulingContext{
		LastListedResources: []models.ListedResource{{ID: "1"}, {ID: "2"}},
	}}
	to, moved := e.NextStage("a", Facts{Context: sc})
	assert.True(t, moved)
	assert.Equal(t, "b", to)
}

func TestInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		def  models.FunnelDefinition
	}{
		{"no stages", models.FunnelDefinition{}},
		{"duplicate stage", models.FunnelDefinition{Stages: []models.StageDefinition{{ID: "a"}, {ID: "a"}}}},
		{"unknown initial", models.FunnelDefinition{InitialStage: "x", Stages: []models.StageDefinition{{ID: "a"}}}},
		{"unknown target", models.FunnelDefinition{
			Stages:      []models.StageDefinition{{ID: "a"}},
			Transitions: []models.TransitionDefinition{{From: "a", To: "zzz"}},
		}},
		{"bad condition", models.FunnelDefinition{
			Stages:      []models.StageDefinition{{ID: "a"}, {ID: "b"}},
			Transitions: []models.TransitionDefinition{{From: "a", To: "b", Condition: "ctx.selectedResourceId !="}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.def, nil)
			assert.Error(t, err)
		})
	}
}
