package tools

import (
	"context"
	"testing"

	"bookflow/models"
	"bookflow/services/scheduling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotsOrdinalIsMappedToListedID(t *testing.T) {
	p := &recordingProvider{MemoryProvider: scheduling.NewMemoryProvider(testSeed())}
	table := newTestTable(t, p)

	inv := invocation(models.SchedulingContext{
		LastListedResources: []models.ListedResource{
			{ID: "77", DisplayName: "Dr. X"},
			{ID: "88", DisplayName: "Dr. Y"},
		},
	})
	inv.Utterance = "quiero ver horarios del doctor 2 en la sucursal 1"

	out := table.Execute(context.Background(), call(GetAvailableSlots, map[string]interface{}{
		"resourceId": "2",
		"locationId": "1",
	}), inv)

	require.True(t, out.Result.Success, out.Result.Error)
	assert.Equal(t, "88", p.slotsResourceID)
	assert.Equal(t, "1", p.slotsLocationID)
	assert.Equal(t, "88", out.Result.Data["resourceId"])
	assert.Equal(t, map[string][]string{testDay: {"09:00", "09:30"}}, out.Result.Data["slotsByDate"])
	assert.True(t, out.Terminal)
	assert.Contains(t, out.Events, EventSlotsFetched)

	require.NotNil(t, out.Patch)
	assert.Equal(t, "88", *out.Patch.SelectedResourceID)
	assert.Equal(t, "88", *out.Patch.SlotsResourceID)
	assert.Equal(t, "1", *out.Patch.SlotsLocationID)
}

func TestSlotsGuardViolationIsInBand(t *testing.T) {
	table := newTestTable(t, scheduling.NewMemoryProvider(testSeed()))

	out := table.Execute(context.Background(), call(GetAvailableSlots, map[string]interface{}{
		"resourceId": "99",
		"locationId": "1",
	}), invocation(models.SchedulingContext{}))

	require.True(t, out.Result.Success)
	assert.Empty(t, out.Result.Data["slots"])
	assert.Equal(t, "2", out.Result.Data["correctedLocationId"])
	assert.Contains(t, out.Result.Data["message"], `locationId "2"`)
	assert.Nil(t, out.Patch)
}

func TestSlotsUnknownResourceIsEmptySuccess(t *testing.T) {
	table := newTestTable(t, scheduling.NewMemoryProvider(testSeed()))

	out := table.Execute(context.Background(), call(GetAvailableSlots, map[string]interface{}{
		"resourceId": "12345",
		"locationId": "1",
	}), invocation(models.SchedulingContext{}))

	require.True(t, out.Result.Success)
	assert.Empty(t, out.Result.Data["slots"])
	assert.Contains(t, out.Result.Data["message"], "does not exist")
}

func TestSlotsDisabledResourceIsEmptySuccess(t *testing.T) {
	table := newTestTable(t, scheduling.NewMemoryProvider(testSeed()))

	out := table.Execute(context.Background(), call(GetAvailableSlots, map[string]interface{}{
		"resourceId": "55",
	}), invocation(models.SchedulingContext{}))

	require.True(t, out.Result.Success)
	assert.Empty(t, out.Result.Data["slots"])
}

func TestSlotsRequireResource(t *testing.T) {
	table := newTestTable(t, scheduling.NewMemoryProvider(testSeed()))

	out := table.Execute(context.Background(), call(GetAvailableSlots, nil), invocation(models.SchedulingContext{}))
	assert.False(t, out.Result.Success)
	assert.Equal(t, string(ErrValidation), out.Result.Data["errorKind"])
}

func TestSlotsFallBackToPersistedSelection(t *testing.T) {
	p := &recordingProvider{MemoryProvider: scheduling.NewMemoryProvider(testSeed())}
	table := newTestTable(t, p)

	inv := invocation(models.SchedulingContext{
		SelectedResourceID:  "88",
		SelectedLocationID:  "1",
		LastListedResources: []models.ListedResource{{ID: "77", DisplayName: "Dr. Ximena Soto"}, {ID: "88", DisplayName: "Dr. Yolanda Rey"}},
	})
	out := table.Execute(context.Background(), call(GetAvailableSlots, map[string]interface{}{"resourceId": "4711"}), inv)

	require.True(t, out.Result.Success)
	assert.Equal(t, "88", p.slotsResourceID)
	assert.Equal(t, "1", p.slotsLocationID)
}

func TestSlotsNamePass(t *testing.T) {
	p := &recordingProvider{MemoryProvider: scheduling.NewMemoryProvider(testSeed())}
	table := newTestTable(t, p)

	inv := invocation(models.SchedulingContext{
		SelectedResourceID:  "77",
		LastListedResources: []models.ListedResource{{ID: "77", DisplayName: "Dr. Ximena Soto"}, {ID: "88", DisplayName: "Dr. Yolanda Rey"}},
	})
	inv.Utterance = "mejor con la doctora Rey"
	out := table.Execute(context.Background(), call(GetAvailableSlots, map[string]interface{}{"resourceId": "dr-rey"}), inv)

	require.True(t, out.Result.Success)
	assert.Equal(t, "88", p.slotsResourceID)
}

func TestSlotsWindow(t *testing.T) {
	table := newTestTable(t, scheduling.NewMemoryProvider(testSeed()))

	out := table.Execute(context.Background(), call(GetAvailableSlots, map[string]interface{}{"resourceId": "88"}), invocation(models.SchedulingContext{}))
	require.True(t, out.Result.Success)
	assert.Equal(t, "2026-10-15", out.Result.Data["startDate"])
	assert.Equal(t, "2026-10-21", out.Result.Data["endDate"])
	assert.Equal(t, 2, out.Result.Data["count"])

	out = table.Execute(context.Background(), call(GetAvailableSlots, map[string]interface{}{
		"resourceId": "88", "startDate": "2026-10-30",
	}), invocation(models.SchedulingContext{}))
	require.True(t, out.Result.Success)
	assert.Equal(t, 1, out.Result.Data["count"])
	assert.Equal(t, "2026-10-30", *out.Patch.SelectedDateYmd)

	out = table.Execute(context.Background(), call(GetAvailableSlots, map[string]interface{}{
		"resourceId": "88", "startDate": "16/10/2026",
	}), invocation(models.SchedulingContext{}))
	assert.False(t, out.Result.Success)
}

// Whatever pair get_available_slots refuses, create_booking refuses too.
func TestGuardSymmetryBetweenSlotsAndBooking(t *testing.T) {
	for _, resourceID := range []string{"77", "88", "99"} {
		for _, locationID := range []string{"1", "2"} {
			table := newTestTable(t, scheduling.NewMemoryProvider(testSeed()))
			args := map[string]interface{}{"resourceId": resourceID, "locationId": locationID}

			slots := table.Execute(context.Background(), call(GetAvailableSlots, args), invocation(models.SchedulingContext{}))
			slotsRefused := slots.Result.Data["correctedLocationId"] != nil

			booking := table.Execute(context.Background(), call(CreateBooking, map[string]interface{}{
				"resourceId": resourceID, "locationId": locationID, "dateYmd": testDay, "timeHhmm": "09:00",
			}), invocation(models.SchedulingContext{}))
			bookingRefused := booking.Result.Data["errorKind"] == string(ErrDomainGuard)

			assert.Equal(t, slotsRefused, bookingRefused, "resource %s location %s", resourceID, locationID)
			assert.Equal(t, testRules.IsCompatible(categoryOf(resourceID), locationID), !slotsRefused)
		}
	}
}

func categoryOf(resourceID string) string {
	for _, r := range testSeed().Resources {
		if r.ID == resourceID {
			return r.Category
		}
	}
	return ""
}
