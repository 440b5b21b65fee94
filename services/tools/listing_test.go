package tools

import (
	"context"
	"testing"

	"bookflow/models"
	"bookflow/services/scheduling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListResourcesAutoSelectsSingleton(t *testing.T) {
	table := newTestTable(t, scheduling.NewMemoryProvider(testSeed()))

	out := table.Execute(context.Background(), call(ListResources, map[string]interface{}{"name": "Fuentes"}), invocation(models.SchedulingContext{}))

	require.True(t, out.Result.Success, out.Result.Error)
	assert.Equal(t, 1, out.Result.Data["count"])
	require.NotNil(t, out.Patch)
	require.NotNil(t, out.Patch.SelectedResourceID)
	assert.Equal(t, "99", *out.Patch.SelectedResourceID)
	assert.Equal(t, "2", *out.Patch.SelectedLocationID)
	assert.Equal(t, []models.ListedResource{{ID: "99", DisplayName: "Dra. Zoe Fuentes", LocationID: "2"}}, out.Patch.LastListedResources)
	assert.ElementsMatch(t, []string{EventResourcesListed, EventResourceSelected}, out.Events)
}

func TestListResourcesAssignsLocationsByGuard(t *testing.T) {
	table := newTestTable(t, scheduling.NewMemoryProvider(testSeed()))

	out := table.Execute(context.Background(), call(ListResources, nil), invocation(models.SchedulingContext{}))
	require.True(t, out.Result.Success)
	require.Len(t, out.Patch.LastListedResources, 3)
	for _, r := range out.Patch.LastListedResources {
		if r.ID == "99" {
			assert.Equal(t, "2", r.LocationID)
		} else {
			assert.Equal(t, "1", r.LocationID)
		}
	}
	assert.Nil(t, out.Patch.SelectedResourceID)

	out = table.Execute(context.Background(), call(ListResources, map[string]interface{}{"locationId": "1"}), invocation(models.SchedulingContext{}))
	require.True(t, out.Result.Success)
	assert.Equal(t, 2, out.Result.Data["count"])
}

func TestListResourcesEmptyStillReplacesListing(t *testing.T) {
	table := newTestTable(t, scheduling.NewMemoryProvider(testSeed()))

	out := table.Execute(context.Background(), call(ListResources, map[string]interface{}{"searchName": "nobody"}), invocation(models.SchedulingContext{
		LastListedResources: []models.ListedResource{{ID: "77"}},
	}))
	require.True(t, out.Result.Success)
	assert.NotNil(t, out.Patch.LastListedResources)
	assert.Empty(t, out.Patch.LastListedResources)
	assert.NotEmpty(t, out.Result.Data["message"])
}

func TestListLocations(t *testing.T) {
	seed := testSeed()
	table := newTestTable(t, scheduling.NewMemoryProvider(seed))

	out := table.Execute(context.Background(), call(ListLocations, nil), invocation(models.SchedulingContext{}))
	require.True(t, out.Result.Success)
	assert.Len(t, out.Patch.LastListedLocations, 2)
	assert.Nil(t, out.Patch.SelectedLocationID)

	seed.Locations[1].Enabled = false
	table = newTestTable(t, scheduling.NewMemoryProvider(seed))
	out = table.Execute(context.Background(), call(ListLocations, nil), invocation(models.SchedulingContext{}))
	require.True(t, out.Result.Success)
	require.NotNil(t, out.Patch.SelectedLocationID)
	assert.Equal(t, "1", *out.Patch.SelectedLocationID)
}

func TestFindContactIsNotTerminal(t *testing.T) {
	table := newTestTable(t, scheduling.NewMemoryProvider(testSeed()))

	out := table.Execute(context.Background(), call(FindContact, map[string]interface{}{"nationalId": "11.111.111-1"}), invocation(models.SchedulingContext{}))
	require.True(t, out.Result.Success)
	assert.False(t, out.Terminal)
	assert.Equal(t, true, out.Result.Data["found"])
	assert.Contains(t, out.Events, EventContactFound)

	out = table.Execute(context.Background(), call(FindContact, map[string]interface{}{"email": "ghost@example.com"}), invocation(models.SchedulingContext{}))
	require.True(t, out.Result.Success)
	assert.Equal(t, false, out.Result.Data["found"])
}

func TestRequestHumanAgent(t *testing.T) {
	table := newTestTable(t, scheduling.NewMemoryProvider(testSeed()))

	out := table.Execute(context.Background(), call(RequestHumanAgent, map[string]interface{}{"reason": "billing question"}), invocation(models.SchedulingContext{}))
	require.True(t, out.Result.Success)
	assert.True(t, out.Terminal)
	assert.Equal(t, KindControl, out.Kind)
	assert.Equal(t, []string{EventHumanRequested}, out.Events)
}
