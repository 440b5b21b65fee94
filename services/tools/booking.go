package tools

import (
	"context"
	"fmt"
	"strings"

	"bookflow/models"
	"bookflow/services/scheduling"

	"go.uber.org/zap"
)

const defaultDurationMinutes = 30

// bookingTarget is a resource/location pair that passed resolution and the domain guard.
type bookingTarget struct {
	resource   *models.Resource
	locationID string
}

// target resolves and guards the pair a write tool operates on.
func (d *dispatcher) target(ctx context.Context, call *Call, resourceCandidate, locationCandidate string) (*bookingTarget, error) {
	sc := call.Context.Scheduling
	resourceID := d.resolveResource(call, resourceCandidate).FinalID

	pctx, cancel := d.providerCtx(ctx)
	resource, err := d.Provider.GetResource(pctx, resourceID)
	cancel()
	if err != nil {
		if scheduling.IsNotFound(err) {
			return nil, notFoundError("professional %s does not exist; list professionals again and ask the patient to choose", resourceID)
		}
		return nil, upstreamError("get resource", err)
	}
	if !resource.Enabled {
		return nil, notFoundError("%s is not taking appointments", resource.DisplayName)
	}

	locationID := locationCandidate
	if locationID != "" {
		locationID = d.resolveLocation(call, locationID).FinalID
	} else {
		listedLocation := ""
		if lr, ok := sc.ListedResourceByID(resourceID); ok {
			listedLocation = lr.LocationID
		}
		if sc.SlotsResourceID == resourceID {
			listedLocation = firstNonEmpty(sc.SlotsLocationID, listedLocation)
		}
		locationID = firstNonEmpty(listedLocation, sc.SelectedLocationID, d.Rules.LocationFor(resource.Category, resource.LocationID))
	}
	if locationID == "" {
		return nil, validationError("locationId is required")
	}

	if v := d.Rules.Check(resource.Category, locationID); v != nil {
		d.Logger.Info("domain guard rejected booking",
			zap.String("sessionId", call.SessionID),
			zap.String("resourceId", resourceID),
			zap.String("locationId", locationID),
			zap.String("correctedLocationId", v.CorrectedLocationID))
		return nil, &ToolError{
			Kind:    ErrDomainGuard,
			Message: v.Message(),
			Data:    map[string]interface{}{"correctedLocationId": v.CorrectedLocationID},
		}
	}
	return &bookingTarget{resource: resource, locationID: locationID}, nil
}

func (d *dispatcher) createBooking(ctx context.Context, call *Call) (*Response, error) {
	sc := call.Context.Scheduling
	log := d.Logger.With(zap.String("sessionId", call.SessionID), zap.String("tool", call.Name))

	resourceCandidate := firstNonEmpty(call.Args.String("resourceId"), sc.SelectedResourceID, sc.SlotsResourceID)
	if resourceCandidate == "" {
		return nil, validationError("resourceId is required; list professionals and fetch availability first")
	}
	tgt, err := d.target(ctx, call, resourceCandidate, call.Args.String("locationId"))
	if err != nil {
		return nil, err
	}
	resourceID := tgt.resource.ID

	date, hhmm, err := completeDateTime(call, resourceID)
	if err != nil {
		return nil, err
	}

	contact, err := d.completeContact(ctx, call)
	if err != nil {
		return nil, err
	}

	duration := tgt.resource.IntervalMinutes
	if duration <= 0 {
		if n, ok := call.Args.Int("duration"); ok && n > 0 {
			duration = n
		} else {
			duration = defaultDurationMinutes
		}
	} else if n, ok := call.Args.Int("duration"); ok && n != duration {
		log.Debug("ignoring caller supplied duration", zap.Int("requested", n), zap.Int("interval", duration))
	}

	req := models.BookingRequest{
		ResourceID:      resourceID,
		LocationID:      tgt.locationID,
		ChairID:         call.Args.String("chairId"),
		DateYmd:         date,
		TimeHhmm:        hhmm,
		DurationMinutes: duration,
		Contact:         contact,
		Comment:         call.Args.String("comment"),
	}

	pctx, cancel := d.providerCtx(ctx)
	attention, err := d.Provider.FindOpenAttention(pctx, contact.Phone)
	cancel()
	if err != nil || attention == nil {
		log.Warn("booking without an open attention record", zap.String("contactPhone", contact.Phone), zap.Error(err))
	} else {
		req.AttentionID = attention.ID
	}

	pctx, cancel = d.providerCtx(ctx)
	booking, err := d.Provider.CreateBooking(pctx, req)
	cancel()
	if err != nil {
		return nil, writeError("create booking", err)
	}

	resp := &Response{
		Data:   bookingData(booking, tgt.resource.DisplayName, booking.LocationID),
		Patch:  &models.ContextPatch{ClearBooking: true, Reason: call.Name},
		Events: []string{EventBookingCreated},
	}
	call.Confirm(resp)
	log.Info("booking created", zap.String("bookingId", booking.ID), zap.String("confirmationCode", booking.ConfirmationCode))

	return d.withSummary(ctx, resp, booking, tgt.resource.DisplayName, "Appointment confirmed")
}

func (d *dispatcher) rescheduleBooking(ctx context.Context, call *Call) (*Response, error) {
	bookingID := call.Args.String("bookingId")
	if bookingID == "" {
		return nil, validationError("bookingId is required; use list_contact_bookings to find it")
	}
	newDate := firstNonEmpty(call.Args.String("newDateYmd"), call.Args.String("dateYmd"))
	newTime := firstNonEmpty(call.Args.String("newTime"), call.Args.String("timeHhmm"))
	if newDate == "" || newTime == "" {
		return nil, validationError("newDateYmd and newTime are required")
	}

	change := models.BookingChange{
		NewDateYmd: newDate,
		NewTime:    newTime,
		ChairID:    call.Args.String("chairId"),
		Comment:    call.Args.String("comment"),
	}
	resourceName := ""
	if rc := call.Args.String("resourceId"); rc != "" {
		tgt, err := d.target(ctx, call, rc, call.Args.String("locationId"))
		if err != nil {
			return nil, err
		}
		change.ResourceID = tgt.resource.ID
		change.LocationID = tgt.locationID
		resourceName = tgt.resource.DisplayName
	} else if lc := call.Args.String("locationId"); lc != "" {
		change.LocationID = d.resolveLocation(call, lc).FinalID
	}

	pctx, cancel := d.providerCtx(ctx)
	booking, err := d.Provider.UpdateBooking(pctx, bookingID, change)
	cancel()
	if err != nil {
		return nil, writeError("reschedule booking", err)
	}

	resp := &Response{
		Data:   bookingData(booking, resourceName, booking.LocationID),
		Patch:  &models.ContextPatch{ClearBooking: true, Reason: call.Name},
		Events: []string{EventBookingRescheduled},
	}
	call.Confirm(resp)
	d.Logger.Info("booking rescheduled", zap.String("sessionId", call.SessionID), zap.String("bookingId", booking.ID))

	return d.withSummary(ctx, resp, booking, resourceName, "Appointment rescheduled")
}

func (d *dispatcher) cancelBooking(ctx context.Context, call *Call) (*Response, error) {
	bookingID := call.Args.String("bookingId")
	if bookingID == "" {
		return nil, validationError("bookingId is required; use list_contact_bookings to find it")
	}

	pctx, cancel := d.providerCtx(ctx)
	booking, err := d.Provider.CancelBooking(pctx, bookingID, call.Args.String("reason"))
	cancel()
	if err != nil {
		return nil, writeError("cancel booking", err)
	}

	data := bookingData(booking, "", booking.LocationID)
	data["summary"] = fmt.Sprintf("Appointment %s on %s at %s was cancelled.", booking.ConfirmationCode, booking.DateYmd, booking.TimeHhmm)
	d.Logger.Info("booking cancelled", zap.String("sessionId", call.SessionID), zap.String("bookingId", booking.ID))
	return &Response{
		Data:   data,
		Patch:  &models.ContextPatch{ClearBooking: true, Reason: call.Name},
		Events: []string{EventBookingCancelled},
	}, nil
}

// withSummary adds the human-readable summary. It runs after the upstream
// confirmation, so a failure here is covered by the confirmed response.
func (d *dispatcher) withSummary(ctx context.Context, resp *Response, b *models.Booking, resourceName, verb string) (*Response, error) {
	pctx, cancel := d.providerCtx(ctx)
	defer cancel()
	locations, err := d.Provider.ListLocations(pctx)
	if err != nil {
		return nil, fmt.Errorf("load location for summary: %w", err)
	}
	locationName := b.LocationID
	for _, l := range locations {
		if l.ID == b.LocationID {
			locationName = l.Name
			break
		}
	}

	parts := []string{fmt.Sprintf("%s for %s at %s", verb, b.DateYmd, b.TimeHhmm)}
	if resourceName != "" {
		parts = append(parts, "with "+resourceName)
	}
	if locationName != "" {
		parts = append(parts, "at "+locationName)
	}
	summary := strings.Join(parts, " ") + "."
	if b.ConfirmationCode != "" {
		summary += " Confirmation code: " + b.ConfirmationCode + "."
	}

	data := make(map[string]interface{}, len(resp.Data)+2)
	for k, v := range resp.Data {
		data[k] = v
	}
	data["summary"] = summary
	data["locationName"] = locationName
	return &Response{Data: data, Patch: resp.Patch, Events: resp.Events}, nil
}

func bookingData(b *models.Booking, resourceName, locationID string) map[string]interface{} {
	data := map[string]interface{}{
		"bookingId":        b.ID,
		"confirmationCode": b.ConfirmationCode,
		"status":           b.Status,
		"resourceId":       b.ResourceID,
		"locationId":       locationID,
		"dateYmd":          b.DateYmd,
		"timeHhmm":         b.TimeHhmm,
		"durationMinutes":  b.DurationMinutes,
	}
	if resourceName != "" {
		data["resourceName"] = resourceName
	}
	if b.ChairID != "" {
		data["chairId"] = b.ChairID
	}
	return data
}

// writeError maps a provider failure on a write. Writes are never retried here.
func writeError(op string, err error) error {
	switch {
	case scheduling.IsNotFound(err):
		return &ToolError{Kind: ErrNotFound, Message: fmt.Sprintf("%s: %v; ask the patient to confirm the details", op, err)}
	case scheduling.IsConflict(err):
		return &ToolError{Kind: ErrValidation, Message: fmt.Sprintf("%s: %v; fetch availability again and offer another time", op, err)}
	default:
		return upstreamError(op, err)
	}
}

// completeDateTime fills date and time from the arguments, the selection and the last slot listing.
func completeDateTime(call *Call, resourceID string) (string, string, error) {
	sc := call.Context.Scheduling
	date := firstNonEmpty(call.Args.String("dateYmd"), sc.SelectedDateYmd)
	slotsApply := sc.SlotsResourceID == resourceID && len(sc.SlotsByDate) > 0

	if date == "" && slotsApply && len(sc.SlotsByDate) == 1 {
		for only := range sc.SlotsByDate {
			date = only
		}
	}
	hhmm := call.Args.String("timeHhmm")
	if hhmm == "" && slotsApply && len(sc.SlotsByDate[date]) == 1 {
		hhmm = sc.SlotsByDate[date][0]
	}
	if date == "" || hhmm == "" {
		return "", "", validationError("dateYmd and timeHhmm are required; ask the patient to pick one of the offered times")
	}

	if slotsApply {
		if times, ok := sc.SlotsByDate[date]; ok && !contains(times, hhmm) {
			return "", "", &ToolError{
				Kind:    ErrValidation,
				Message: fmt.Sprintf("%s is not an offered time on %s; offer one of the listed times", hhmm, date),
				Data:    map[string]interface{}{"availableTimes": times},
			}
		}
	}
	return date, hhmm, nil
}

// completeContact merges contactData with the caller known to the channel and the provider's record.
func (d *dispatcher) completeContact(ctx context.Context, call *Call) (models.Contact, error) {
	cd := call.Args.Object("contactData")
	contact := models.Contact{
		Name:       cd.String("name"),
		Email:      cd.String("email"),
		Phone:      firstNonEmpty(cd.String("phone"), call.Args.String("contactPhone"), call.CallerPhone),
		NationalID: cd.String("nationalId"),
	}

	if contact.Name == "" || contact.Email == "" {
		q := models.ContactQuery{Phone: contact.Phone, NationalID: contact.NationalID, Email: contact.Email}
		if q != (models.ContactQuery{}) {
			pctx, cancel := d.providerCtx(ctx)
			known, err := d.Provider.FindContact(pctx, q)
			cancel()
			if err == nil && known != nil {
				contact.ID = known.ID
				contact.Name = firstNonEmpty(contact.Name, known.Name)
				contact.Email = firstNonEmpty(contact.Email, known.Email)
				contact.Phone = firstNonEmpty(contact.Phone, known.Phone)
				contact.NationalID = firstNonEmpty(contact.NationalID, known.NationalID)
			}
		}
	}
	contact.Name = firstNonEmpty(contact.Name, call.CallerName)

	if contact.Name == "" || contact.Phone == "" {
		return contact, validationError("the patient's name and phone are required; ask for the missing data")
	}
	return contact, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
