package schedulingRepo

import (
	"bookflow/models"
	"bookflow/services/scheduling"
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindContact matches on any of the provided fields.
func (repo *MongoSchedulingRepo) FindContact(ctx context.Context, q models.ContactQuery) (*models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var or bson.A
	if q.NationalID != "" {
		or = append(or, bson.M{"nationalId": q.NationalID})
	}
	if q.Email != "" {
		or = append(or, bson.M{"email": bson.M{"$regex": "^" + regexp.QuoteMeta(q.Email) + "$", "$options": "i"}})
	}
	if q.Phone != "" {
		or = append(or, bson.M{"phone": q.Phone})
	}
	if len(or) == 0 {
		return nil, scheduling.NewNotFound("contact not found")
	}

	var c models.Contact
	if err := repo.contactColl.FindOne(ctx, bson.M{"$or": or}).Decode(&c); err != nil {
		return nil, providerError(err, "contact not found")
	}
	return &c, nil
}

// ListContactBookings returns a contact's bookings, newest first.
func (repo *MongoSchedulingRepo) ListContactBookings(ctx context.Context, contactPhone, status string) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"contact.phone": contactPhone}
	if status != "" {
		filter["status"] = status
	}
	cursor, err := repo.bookingColl.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "dateYmd", Value: -1}, {Key: "timeHhmm", Value: -1}}))
	if err != nil {
		return nil, providerError(err, "bookings not found")
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, providerError(err, "error decoding bookings")
	}
	return bookings, nil
}

// FindOpenAttention returns the contact's open attention record.
func (repo *MongoSchedulingRepo) FindOpenAttention(ctx context.Context, contactPhone string) (*models.Attention, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var a models.Attention
	if err := repo.attentionColl.FindOne(ctx, bson.M{"contactPhone": contactPhone, "open": true}).Decode(&a); err != nil {
		return nil, providerError(err, "no open attention for %s", contactPhone)
	}
	return &a, nil
}
