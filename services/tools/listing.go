package tools

import (
	"context"

	"bookflow/models"

	"go.uber.org/zap"
)

func (d *dispatcher) listLocations(ctx context.Context, call *Call) (*Response, error) {
	pctx, cancel := d.providerCtx(ctx)
	defer cancel()
	locations, err := d.Provider.ListLocations(pctx)
	if err != nil {
		return nil, upstreamError("list locations", err)
	}

	items := make([]map[string]interface{}, 0, len(locations))
	listed := make([]models.ListedLocation, 0, len(locations))
	for i, l := range locations {
		items = append(items, map[string]interface{}{
			"index":    i + 1,
			"id":       l.ID,
			"name":     l.Name,
			"address":  l.Address,
			"schedule": l.Schedule,
		})
		listed = append(listed, models.ListedLocation{ID: l.ID, Name: l.Name})
	}

	patch := &models.ContextPatch{LastListedLocations: listed, Reason: call.Name}
	data := map[string]interface{}{"locations": items, "count": len(items)}
	if len(locations) == 1 {
		patch.SelectedLocationID = models.StringPtr(locations[0].ID)
		data["selectedLocationId"] = locations[0].ID
	}
	if len(locations) == 0 {
		data["message"] = "No locations are available right now."
	}
	return &Response{Data: data, Patch: patch, Events: []string{EventLocationsListed}}, nil
}

func (d *dispatcher) listCategories(ctx context.Context, _ *Call) (*Response, error) {
	pctx, cancel := d.providerCtx(ctx)
	defer cancel()
	categories, err := d.Provider.ListCategories(pctx)
	if err != nil {
		return nil, upstreamError("list categories", err)
	}
	items := make([]map[string]interface{}, 0, len(categories))
	for _, c := range categories {
		items = append(items, map[string]interface{}{"id": c.ID, "name": c.Name})
	}
	return &Response{Data: map[string]interface{}{"categories": items, "count": len(items)}}, nil
}

func (d *dispatcher) listResources(ctx context.Context, call *Call) (*Response, error) {
	sc := call.Context.Scheduling
	filter := models.ResourceFilter{
		Category:   call.Args.String("category"),
		SearchName: call.Args.String("searchName"),
	}
	if loc := call.Args.String("locationId"); loc != "" {
		filter.LocationID = d.resolveLocation(call, loc).FinalID
	}

	pctx, cancel := d.providerCtx(ctx)
	defer cancel()
	resources, err := d.Provider.ListResources(pctx, filter)
	if err != nil {
		return nil, upstreamError("list resources", err)
	}

	items := make([]map[string]interface{}, 0, len(resources))
	listed := make([]models.ListedResource, 0, len(resources))
	for _, r := range resources {
		locationID := d.Rules.LocationFor(r.Category, firstNonEmpty(r.LocationID, filter.LocationID))
		if filter.LocationID != "" && !d.Rules.IsCompatible(r.Category, filter.LocationID) {
			continue
		}
		listed = append(listed, models.ListedResource{ID: r.ID, DisplayName: r.DisplayName, LocationID: locationID})
		items = append(items, map[string]interface{}{
			"index":       len(listed),
			"id":          r.ID,
			"displayName": r.DisplayName,
			"category":    r.Category,
			"locationId":  locationID,
		})
	}

	patch := &models.ContextPatch{LastListedResources: listed, Reason: call.Name}
	events := []string{EventResourcesListed}
	data := map[string]interface{}{"resources": items, "count": len(items)}

	switch len(listed) {
	case 0:
		data["message"] = "No professionals match that search. Ask the patient to rephrase or pick a category."
	case 1:
		only := listed[0]
		patch.SelectedResourceID = models.StringPtr(only.ID)
		if only.LocationID != "" {
			patch.SelectedLocationID = models.StringPtr(only.LocationID)
		}
		events = append(events, EventResourceSelected)
		data["selectedResourceId"] = only.ID
		if only.ID != sc.SelectedResourceID {
			d.Logger.Info("auto-selected single listed resource",
				zap.String("sessionId", call.SessionID),
				zap.String("resourceId", only.ID))
		}
	}
	return &Response{Data: data, Patch: patch, Events: events}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
