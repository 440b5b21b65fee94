package funnel

import (
	"bookflow/models"
	"bookflow/services/tools"
)

// Stage ids of the built-in funnel.
const (
	StageGreeting     = "greeting"
	StageScheduling   = "scheduling"
	StageConfirmed    = "confirmed"
	StageHumanHandoff = "human_handoff"
)

// DefaultDefinition is used when the configuration does not declare a funnel.
func DefaultDefinition() models.FunnelDefinition {
	return models.FunnelDefinition{
		InitialStage: StageGreeting,
		Stages: []models.StageDefinition{
			{
				ID:       StageGreeting,
				HasAgent: true,
				ToolNames: []string{
					tools.ListLocations, tools.ListResourceCategories, tools.ListResources,
					tools.FindContact, tools.ListContactBookings, tools.RequestHumanAgent,
				},
				Prompt: "Greet the patient, find out what kind of appointment they need and help them pick a professional.",
			},
			{
				ID:       StageScheduling,
				HasAgent: true,
				ToolNames: []string{
					tools.ListLocations, tools.ListResourceCategories, tools.ListResources,
					tools.GetAvailableSlots, tools.CreateBooking, tools.ScheduleBooking,
					tools.RescheduleBooking, tools.CancelBooking,
					tools.FindContact, tools.ListContactBookings, tools.RequestHumanAgent,
				},
				Prompt: "Help the patient choose a date and time with the selected professional and book it. Only offer times returned by get_available_slots.",
			},
			{
				ID:       StageConfirmed,
				HasAgent: true,
				ToolNames: []string{
					tools.ListLocations, tools.ListResources, tools.GetAvailableSlots,
					tools.ListContactBookings, tools.RescheduleBooking, tools.CancelBooking,
					tools.RequestHumanAgent,
				},
				Prompt: "The patient already has a confirmed appointment. Answer follow-up questions, and reschedule or cancel when asked.",
			},
			{
				ID:         StageHumanHandoff,
				HasAgent:   false,
				IsTerminal: true,
			},
		},
		Transitions: []models.TransitionDefinition{
			{From: AnyStage, To: StageHumanHandoff, Condition: `"human_requested" in events`},
			{From: StageGreeting, To: StageScheduling, Condition: `ctx.selectedResourceId != ""`},
			{From: StageScheduling, To: StageConfirmed, Condition: `"booking_created" in events`},
			{From: StageConfirmed, To: StageScheduling, Condition: `ctx.selectedResourceId != ""`},
		},
	}
}
