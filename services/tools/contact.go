package tools

import (
	"context"

	"bookflow/models"
	"bookflow/services/scheduling"
)

func (d *dispatcher) findContact(ctx context.Context, call *Call) (*Response, error) {
	q := models.ContactQuery{
		NationalID: call.Args.String("nationalId"),
		Email:      call.Args.String("email"),
		Phone:      call.Args.String("phone"),
	}
	if q == (models.ContactQuery{}) {
		q.Phone = call.CallerPhone
	}
	if q == (models.ContactQuery{}) {
		return nil, validationError("one of nationalId, email or phone is required")
	}

	pctx, cancel := d.providerCtx(ctx)
	defer cancel()
	contact, err := d.Provider.FindContact(pctx, q)
	if err != nil {
		if scheduling.IsNotFound(err) {
			return &Response{Data: map[string]interface{}{
				"found":   false,
				"message": "No patient record matches; ask for name and phone to register the appointment.",
			}}, nil
		}
		return nil, upstreamError("find contact", err)
	}
	return &Response{
		Data: map[string]interface{}{
			"found": true,
			"contact": map[string]interface{}{
				"id":         contact.ID,
				"name":       contact.Name,
				"email":      contact.Email,
				"phone":      contact.Phone,
				"nationalId": contact.NationalID,
			},
		},
		Events: []string{EventContactFound},
	}, nil
}

func (d *dispatcher) listContactBookings(ctx context.Context, call *Call) (*Response, error) {
	phone := firstNonEmpty(call.Args.String("contactPhone"), call.CallerPhone)
	if phone == "" {
		return nil, validationError("contactPhone is required")
	}

	pctx, cancel := d.providerCtx(ctx)
	defer cancel()
	bookings, err := d.Provider.ListContactBookings(pctx, phone, call.Args.String("status"))
	if err != nil {
		if scheduling.IsNotFound(err) {
			bookings = nil
		} else {
			return nil, upstreamError("list contact bookings", err)
		}
	}

	items := make([]map[string]interface{}, 0, len(bookings))
	for i := range bookings {
		items = append(items, bookingData(&bookings[i], "", bookings[i].LocationID))
	}
	data := map[string]interface{}{"bookings": items, "count": len(items)}
	if len(items) == 0 {
		data["message"] = "The patient has no appointments."
	}
	return &Response{Data: data}, nil
}

func (d *dispatcher) requestHumanAgent(_ context.Context, call *Call) (*Response, error) {
	data := map[string]interface{}{"message": "A human operator will continue this conversation."}
	if reason := call.Args.String("reason"); reason != "" {
		data["reason"] = reason
	}
	return &Response{Data: data, Events: []string{EventHumanRequested}}, nil
}
