package tools

import (
	"context"
	"time"

	"bookflow/models"
	"bookflow/services/guard"
	"bookflow/services/resolver"
	"bookflow/services/scheduling"

	"go.uber.org/zap"
)

// Deps are the collaborators of the built-in scheduling tools.
type Deps struct {
	Provider scheduling.Provider
	Resolver *resolver.Resolver
	Rules    guard.Rules
	Logger   *zap.Logger

	// ProviderTimeout bounds every single provider call. Zero disables the bound.
	ProviderTimeout time.Duration
	// WindowDays is the default availability window when no endDate is given.
	WindowDays int
	Location   *time.Location
	Now        func() time.Time
}

// dispatcher holds the handlers of the built-in tools.
type dispatcher struct {
	Deps
}

func (d *dispatcher) providerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.ProviderTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.ProviderTimeout)
}

func (d *dispatcher) today() time.Time {
	now := d.Now()
	if d.Location != nil {
		now = now.In(d.Location)
	}
	return now
}

// NewDefaultTable registers every scheduling tool.
func NewDefaultTable(deps Deps) (*Table, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Resolver == nil {
		deps.Resolver = resolver.New(deps.Logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.WindowDays <= 0 {
		deps.WindowDays = 7
	}
	d := &dispatcher{Deps: deps}

	t := NewTable(deps.Logger)
	entries := []Entry{
		{
			Definition: def(ListLocations, "List the clinic locations with address and opening schedule.", object(nil)),
			Kind:       KindRead, Terminal: true, Handler: d.listLocations,
		},
		{
			Definition: def(ListResourceCategories, "List the available service categories (specialties).", object(nil)),
			Kind:       KindRead, Terminal: true, Handler: d.listCategories,
		},
		{
			Definition: def(ListResources, "List professionals, optionally filtered by category, name or location. Each result carries the locationId it must be booked at.", object(props{
				"category":   str("Service category to filter by."),
				"searchName": str("Part of the professional's name."),
				"locationId": str("Location id to filter by."),
			})),
			Kind: KindRead, Terminal: true, Handler: d.listResources,
		},
		{
			Definition: def(GetAvailableSlots, "Fetch free appointment times for a professional, grouped by date. Use ids returned by list_resources.", object(props{
				"resourceId": str("Professional id from list_resources."),
				"locationId": str("Location id the professional attends at."),
				"startDate":  str("First date, YYYY-MM-DD. Defaults to today."),
				"endDate":    str("Last date, YYYY-MM-DD."),
			}, "resourceId")),
			Kind: KindRead, Terminal: true, Handler: d.getAvailableSlots,
		},
		{
			Definition: def(CreateBooking, "Book an appointment in a slot returned by get_available_slots.", bookingSchema()),
			Kind:       KindWrite, Terminal: true, Handler: d.createBooking,
		},
		{
			Definition: def(ScheduleBooking, "Alias of create_booking.", bookingSchema()),
			Kind:       KindWrite, Terminal: true, Handler: d.createBooking,
		},
		{
			Definition: def(RescheduleBooking, "Move an existing appointment to a new date and time.", object(props{
				"bookingId":  str("Booking id or confirmation code."),
				"newDateYmd": str("New date, YYYY-MM-DD."),
				"newTime":    str("New time, HH:MM."),
				"resourceId": str("New professional id, if it changes."),
				"locationId": str("New location id, if it changes."),
				"chairId":    str("Chair or box id."),
				"comment":    str("Free text comment."),
			}, "bookingId", "newDateYmd", "newTime")),
			Kind: KindWrite, Terminal: true, Handler: d.rescheduleBooking,
		},
		{
			Definition: def(CancelBooking, "Cancel an existing appointment.", object(props{
				"bookingId": str("Booking id or confirmation code."),
				"reason":    str("Why the patient cancels."),
			}, "bookingId")),
			Kind: KindWrite, Terminal: true, Handler: d.cancelBooking,
		},
		{
			Definition: def(FindContact, "Look up a patient by national id, email or phone.", object(props{
				"nationalId": str("National identity number."),
				"email":      str("Email address."),
				"phone":      str("Phone number."),
			})),
			Kind: KindRead, Terminal: false, Handler: d.findContact,
		},
		{
			Definition: def(ListContactBookings, "List the appointments of a patient.", object(props{
				"contactPhone": str("Patient phone number."),
				"status":       str("Optional status filter: confirmed, rescheduled or cancelled."),
			})),
			Kind: KindRead, Terminal: true, Handler: d.listContactBookings,
		},
		{
			Definition: def(RequestHumanAgent, "Hand the conversation over to a human operator.", object(props{
				"reason": str("Why a human is needed."),
			})),
			Kind: KindControl, Terminal: true, Handler: d.requestHumanAgent,
		},
	}
	for _, e := range entries {
		if err := t.Register(e); err != nil {
			return nil, err
		}
	}
	return t, nil
}

type props map[string]interface{}

func def(name, description string, params map[string]interface{}) models.ToolDefinition {
	return models.ToolDefinition{Name: name, Description: description, Parameters: params}
}

func str(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func object(p props, required ...string) map[string]interface{} {
	if p == nil {
		p = props{}
	}
	schema := map[string]interface{}{"type": "object", "properties": map[string]interface{}(p)}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func bookingSchema() map[string]interface{} {
	return object(props{
		"contactData": map[string]interface{}{
			"type":        "object",
			"description": "Patient data. Missing fields are completed from the conversation.",
			"properties": map[string]interface{}{
				"name":       str("Full name."),
				"email":      str("Email address."),
				"phone":      str("Phone number."),
				"nationalId": str("National identity number."),
			},
		},
		"resourceId":   str("Professional id."),
		"locationId":   str("Location id."),
		"chairId":      str("Chair or box id."),
		"dateYmd":      str("Date, YYYY-MM-DD."),
		"timeHhmm":     str("Time, HH:MM, one of the offered slots."),
		"duration":     map[string]interface{}{"type": "integer", "description": "Ignored; the professional's own interval is used."},
		"contactPhone": str("Patient phone number."),
		"comment":      str("Free text comment."),
	}, "resourceId", "dateYmd", "timeHhmm")
}
