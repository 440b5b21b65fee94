package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bookflow/models"
	"bookflow/services/scheduling"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// emptySlots is the success-with-empty-result answer for availability queries.
func emptySlots(message string, extra map[string]interface{}) *Response {
	data := map[string]interface{}{
		"slots":       []map[string]interface{}{},
		"slotsByDate": map[string][]string{},
		"count":       0,
		"message":     message,
	}
	for k, v := range extra {
		data[k] = v
	}
	return &Response{Data: data}
}

func (d *dispatcher) getAvailableSlots(ctx context.Context, call *Call) (*Response, error) {
	sc := call.Context.Scheduling
	log := d.Logger.With(zap.String("sessionId", call.SessionID), zap.String("tool", call.Name))

	candidate := firstNonEmpty(call.Args.String("resourceId"), sc.SelectedResourceID)
	if candidate == "" {
		return nil, validationError("resourceId is required; call list_resources first and use one of the returned ids")
	}
	resourceID := d.resolveResource(call, candidate).FinalID

	pctx, cancel := d.providerCtx(ctx)
	resource, err := d.Provider.GetResource(pctx, resourceID)
	cancel()
	if err != nil {
		if scheduling.IsNotFound(err) {
			log.Info("availability requested for unknown resource", zap.String("resourceId", resourceID))
			return emptySlots(fmt.Sprintf("Professional %s does not exist. List professionals again and use one of the returned ids.", resourceID), nil), nil
		}
		return nil, upstreamError("get resource", err)
	}
	if !resource.Enabled {
		return emptySlots(fmt.Sprintf("%s is not taking appointments right now.", resource.DisplayName), nil), nil
	}

	listedLocation := ""
	if lr, ok := sc.ListedResourceByID(resourceID); ok {
		listedLocation = lr.LocationID
	}
	locationID := call.Args.String("locationId")
	if locationID != "" {
		locationID = d.resolveLocation(call, locationID).FinalID
	} else {
		locationID = firstNonEmpty(listedLocation, sc.SelectedLocationID, d.Rules.LocationFor(resource.Category, resource.LocationID))
	}
	if locationID == "" {
		return nil, validationError("locationId is required; call list_locations first")
	}

	if v := d.Rules.Check(resource.Category, locationID); v != nil {
		log.Info("domain guard rejected availability query",
			zap.String("resourceId", resourceID),
			zap.String("locationId", locationID),
			zap.String("correctedLocationId", v.CorrectedLocationID))
		return emptySlots(v.Message(), map[string]interface{}{
			"resourceId":          resourceID,
			"correctedLocationId": v.CorrectedLocationID,
		}), nil
	}

	start, end, err := d.window(call.Args.String("startDate"), call.Args.String("endDate"))
	if err != nil {
		return nil, err
	}

	pctx, cancel = d.providerCtx(ctx)
	slots, err := d.Provider.ListSlots(pctx, resourceID, locationID, start, end)
	cancel()
	if err != nil {
		if scheduling.IsNotFound(err) {
			return emptySlots("No availability was found for that professional.", nil), nil
		}
		return nil, upstreamError("list slots", err)
	}

	byDate := groupSlots(slots)
	items := make([]map[string]interface{}, 0, len(slots))
	for _, s := range slots {
		item := map[string]interface{}{"date": s.Date, "time": s.Time}
		if s.ChairID != "" {
			item["chairId"] = s.ChairID
		}
		items = append(items, item)
	}

	patch := &models.ContextPatch{
		SelectedResourceID: models.StringPtr(resourceID),
		SelectedLocationID: models.StringPtr(locationID),
		SlotsByDate:        byDate,
		SlotsResourceID:    models.StringPtr(resourceID),
		SlotsLocationID:    models.StringPtr(locationID),
		Reason:             call.Name,
	}
	if call.Args.String("startDate") != "" && (call.Args.String("endDate") == "" || start == end) {
		patch.SelectedDateYmd = models.StringPtr(start)
	}

	data := map[string]interface{}{
		"resourceId":   resourceID,
		"resourceName": resource.DisplayName,
		"locationId":   locationID,
		"startDate":    start,
		"endDate":      end,
		"slots":        items,
		"slotsByDate":  byDate,
		"count":        len(items),
	}
	if len(items) == 0 {
		data["message"] = fmt.Sprintf("%s has no free times between %s and %s.", resource.DisplayName, start, end)
	}
	return &Response{Data: data, Patch: patch, Events: []string{EventSlotsFetched}}, nil
}

// window resolves the requested date range, defaulting to today plus WindowDays.
func (d *dispatcher) window(startArg, endArg string) (string, string, error) {
	start := d.today()
	if startArg != "" {
		t, err := time.Parse(dateLayout, startArg)
		if err != nil {
			return "", "", validationError("startDate %q must be YYYY-MM-DD", startArg)
		}
		start = t
	}
	end := start.AddDate(0, 0, d.WindowDays-1)
	if endArg != "" {
		t, err := time.Parse(dateLayout, endArg)
		if err != nil {
			return "", "", validationError("endDate %q must be YYYY-MM-DD", endArg)
		}
		end = t
	}
	s, e := start.Format(dateLayout), end.Format(dateLayout)
	if e < s {
		return "", "", validationError("endDate %s is before startDate %s", e, s)
	}
	return s, e, nil
}

// groupSlots builds the date → ordered times mapping persisted as slotsByDate.
func groupSlots(slots []models.Slot) map[string][]string {
	byDate := make(map[string][]string)
	seen := make(map[string]bool)
	for _, s := range slots {
		key := s.Date + " " + s.Time
		if seen[key] {
			continue
		}
		seen[key] = true
		byDate[s.Date] = append(byDate[s.Date], s.Time)
	}
	for date := range byDate {
		sort.Strings(byDate[date])
	}
	return byDate
}
