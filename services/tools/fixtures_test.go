package tools

import (
	"context"
	"testing"
	"time"

	"bookflow/models"
	"bookflow/services/guard"
	"bookflow/services/scheduling"

	"github.com/stretchr/testify/require"
)

const (
	testPhone = "+56911112222"
	testDay   = "2026-10-16"
)

var testRules = guard.Rules{
	ConfinedCategory:   "Odontología",
	ConfinedLocationID: "2",
	DefaultLocationID:  "1",
}

func testSeed() scheduling.Seed {
	return scheduling.Seed{
		Locations: []models.Location{
			{ID: "1", Name: "Centro", Address: "Av. Principal 100", Enabled: true},
			{ID: "2", Name: "Norte", Address: "Calle Norte 55", Enabled: true},
		},
		Categories: []models.ResourceCategory{
			{ID: "gen", Name: "Medicina general"},
			{ID: "odo", Name: "Odontología"},
		},
		Resources: []models.Resource{
			{ID: "77", DisplayName: "Dr. Ximena Soto", Category: "Medicina general", IntervalMinutes: 20, Enabled: true},
			{ID: "88", DisplayName: "Dr. Yolanda Rey", Category: "Medicina general", IntervalMinutes: 40, Enabled: true},
			{ID: "99", DisplayName: "Dra. Zoe Fuentes", Category: "Odontología", LocationID: "2", IntervalMinutes: 30, Enabled: true},
			{ID: "55", DisplayName: "Dr. Retirado", Category: "Medicina general", Enabled: false},
		},
		Slots: []models.Slot{
			{ResourceID: "88", LocationID: "1", Date: testDay, Time: "09:30"},
			{ResourceID: "88", LocationID: "1", Date: testDay, Time: "09:00"},
			{ResourceID: "88", LocationID: "1", Date: "2026-10-30", Time: "09:00"},
			{ResourceID: "99", LocationID: "2", Date: testDay, Time: "10:00"},
			{ResourceID: "77", LocationID: "1", Date: "2026-10-17", Time: "11:00"},
		},
		Contacts: []models.Contact{
			{ID: "c1", Name: "Ana Pérez", Email: "ana@example.com", Phone: testPhone, NationalID: "11.111.111-1"},
		},
		Attentions: []models.Attention{
			{ID: "att-1", ContactPhone: testPhone, Open: true},
		},
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
}

func newTestTable(t *testing.T, p scheduling.Provider) *Table {
	t.Helper()
	table, err := NewDefaultTable(Deps{
		Provider:        p,
		Rules:           testRules,
		ProviderTimeout: time.Second,
		WindowDays:      7,
		Now:             fixedNow,
	})
	require.NoError(t, err)
	return table
}

func call(name string, args map[string]interface{}) models.ToolCallRequest {
	return models.ToolCallRequest{ID: "call-" + name, Name: name, Arguments: args}
}

func invocation(sc models.SchedulingContext) Invocation {
	return Invocation{
		SessionID:   "s-1",
		Context:     models.SessionContext{Scheduling: sc},
		CallerName:  "Ana Pérez",
		CallerPhone: testPhone,
	}
}

// faultyProvider fails the post-booking summary lookup.
type faultyProvider struct {
	*scheduling.MemoryProvider
	panicOnLocations bool
	booked           bool
}

func (f *faultyProvider) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	b, err := f.MemoryProvider.CreateBooking(ctx, req)
	if err == nil {
		f.booked = true
	}
	return b, err
}

func (f *faultyProvider) ListLocations(ctx context.Context) ([]models.Location, error) {
	if f.booked {
		if f.panicOnLocations {
			panic("summary renderer crashed")
		}
		return nil, scheduling.NewConflict("connection reset")
	}
	return f.MemoryProvider.ListLocations(ctx)
}

// recordingProvider remembers the last availability query.
type recordingProvider struct {
	*scheduling.MemoryProvider
	slotsResourceID string
	slotsLocationID string
}

func (r *recordingProvider) ListSlots(ctx context.Context, resourceID, locationID, start, end string) ([]models.Slot, error) {
	r.slotsResourceID, r.slotsLocationID = resourceID, locationID
	return r.MemoryProvider.ListSlots(ctx, resourceID, locationID, start, end)
}
