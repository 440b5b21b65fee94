package schedulingRepo

import (
	"bookflow/models"
	"bookflow/services/scheduling"
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// takeSlot atomically flips a free slot to booked and returns it.
func (repo *MongoSchedulingRepo) takeSlot(ctx context.Context, resourceID, locationID, chairID, date, hhmm string) (*models.Slot, error) {
	filter := bson.M{
		"resourceId": resourceID,
		"locationId": locationID,
		"date":       date,
		"time":       hhmm,
		"booked":     false,
	}
	if chairID != "" {
		filter["chairId"] = chairID
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var slot models.Slot
	err := repo.slotColl.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"booked": true}}, opts).Decode(&slot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, scheduling.NewConflict("no free slot for resource %s at %s %s", resourceID, date, hhmm)
	}
	if err != nil {
		return nil, providerError(err, "slot lookup failed")
	}
	return &slot, nil
}

func (repo *MongoSchedulingRepo) releaseSlot(ctx context.Context, b *models.Booking) error {
	filter := bson.M{
		"resourceId": b.ResourceID,
		"locationId": b.LocationID,
		"date":       b.DateYmd,
		"time":       b.TimeHhmm,
		"booked":     true,
	}
	_, err := repo.slotColl.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"booked": false}})
	return err
}

// findBooking accepts either the booking id or its confirmation code.
func (repo *MongoSchedulingRepo) findBooking(ctx context.Context, ref string) (*models.Booking, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"id": ref},
		bson.M{"confirmationCode": strings.ToUpper(ref)},
	}}
	var b models.Booking
	if err := repo.bookingColl.FindOne(ctx, filter).Decode(&b); err != nil {
		return nil, providerError(err, "booking %s not found", ref)
	}
	return &b, nil
}

// CreateBooking reserves the slot, then inserts the booking. The slot is released
// again when the insert fails.
func (repo *MongoSchedulingRepo) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	slot, err := repo.takeSlot(ctx, req.ResourceID, req.LocationID, req.ChairID, req.DateYmd, req.TimeHhmm)
	if err != nil {
		return nil, err
	}

	now := repo.now()
	if req.Contact.ID == "" {
		req.Contact.ID = uuid.New().String()
	}
	b := &models.Booking{
		ID:               uuid.New().String(),
		ConfirmationCode: strings.ToUpper(shortuuid.New()[:8]),
		ResourceID:       req.ResourceID,
		LocationID:       req.LocationID,
		ChairID:          slot.ChairID,
		DateYmd:          req.DateYmd,
		TimeHhmm:         req.TimeHhmm,
		DurationMinutes:  req.DurationMinutes,
		Contact:          req.Contact,
		AttentionID:      req.AttentionID,
		Status:           models.BookingStatusConfirmed,
		Comment:          req.Comment,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := repo.bookingColl.InsertOne(ctx, b); err != nil {
		_ = repo.releaseSlot(ctx, b)
		return nil, providerError(err, "error creating booking")
	}
	repo.upsertContact(ctx, req.Contact)
	return b, nil
}

// upsertContact keeps the contacts collection in sync with booked patients. Best effort.
func (repo *MongoSchedulingRepo) upsertContact(ctx context.Context, c models.Contact) {
	if c.Phone == "" {
		return
	}
	opts := options.Update().SetUpsert(true)
	_, _ = repo.contactColl.UpdateOne(ctx, bson.M{"phone": c.Phone}, bson.M{
		"$set":         bson.M{"name": c.Name, "email": c.Email, "nationalId": c.NationalID},
		"$setOnInsert": bson.M{"id": c.ID},
	}, opts)
}

// UpdateBooking moves a booking to a new slot.
func (repo *MongoSchedulingRepo) UpdateBooking(ctx context.Context, bookingID string, change models.BookingChange) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	b, err := repo.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == models.BookingStatusCancelled {
		return nil, scheduling.NewConflict("booking %s is cancelled", bookingID)
	}

	resourceID := b.ResourceID
	if change.ResourceID != "" {
		resourceID = change.ResourceID
	}
	locationID := b.LocationID
	if change.LocationID != "" {
		locationID = change.LocationID
	}
	slot, err := repo.takeSlot(ctx, resourceID, locationID, change.ChairID, change.NewDateYmd, change.NewTime)
	if err != nil {
		return nil, err
	}
	if err := repo.releaseSlot(ctx, b); err != nil {
		return nil, providerError(err, "error releasing slot")
	}

	b.ResourceID = resourceID
	b.LocationID = locationID
	b.ChairID = slot.ChairID
	b.DateYmd = change.NewDateYmd
	b.TimeHhmm = change.NewTime
	if change.Comment != "" {
		b.Comment = change.Comment
	}
	b.Status = models.BookingStatusRescheduled
	b.UpdatedAt = repo.now()

	if _, err := repo.bookingColl.ReplaceOne(ctx, bson.M{"id": b.ID}, b); err != nil {
		return nil, providerError(err, "error updating booking %s", b.ID)
	}
	return b, nil
}

// CancelBooking marks a booking cancelled and frees its slot.
func (repo *MongoSchedulingRepo) CancelBooking(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	b, err := repo.findBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == models.BookingStatusCancelled {
		return nil, scheduling.NewConflict("booking %s is already cancelled", bookingID)
	}

	b.Status = models.BookingStatusCancelled
	b.CancelReason = reason
	b.UpdatedAt = repo.now()
	update := bson.M{"$set": bson.M{"status": b.Status, "cancelReason": reason, "updatedAt": b.UpdatedAt}}
	if _, err := repo.bookingColl.UpdateOne(ctx, bson.M{"id": b.ID}, update); err != nil {
		return nil, providerError(err, "error cancelling booking %s", b.ID)
	}
	if err := repo.releaseSlot(ctx, b); err != nil {
		return nil, providerError(err, "error releasing slot")
	}
	return b, nil
}
