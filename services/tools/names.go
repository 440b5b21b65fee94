// Package tools is the ToolDispatchTable: tool name → typed handler, plus the
// terminal-action classification the orchestrator uses to stop chaining.
package tools

// Canonical tool names offered to the LLM.
const (
	ListLocations          = "list_locations"
	ListResourceCategories = "list_resource_categories"
	ListResources          = "list_resources"
	GetAvailableSlots      = "get_available_slots"
	CreateBooking          = "create_booking"
	ScheduleBooking        = "schedule_booking"
	RescheduleBooking      = "reschedule_booking"
	CancelBooking          = "cancel_booking"
	FindContact            = "find_contact"
	ListContactBookings    = "list_contact_bookings"
	RequestHumanAgent      = "request_human_agent"
)

// Kind classifies a tool by its side effects.
type Kind string

const (
	KindRead    Kind = "read"
	KindWrite   Kind = "write"
	KindControl Kind = "control"
)

// Domain events emitted by tools; stage transition conditions read them.
const (
	EventLocationsListed    = "locations_listed"
	EventResourcesListed    = "resources_listed"
	EventResourceSelected   = "resource_selected"
	EventSlotsFetched       = "slots_fetched"
	EventContactFound       = "contact_found"
	EventBookingCreated     = "booking_created"
	EventBookingRescheduled = "booking_rescheduled"
	EventBookingCancelled   = "booking_cancelled"
	EventHumanRequested     = "human_requested"
)
