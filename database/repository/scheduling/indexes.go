package schedulingRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the provider queries rely on.
func (repo *MongoSchedulingRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	plan := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{repo.resourceColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_id")},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "enabled", Value: 1}}, Options: options.Index().SetName("category_enabled_idx")},
		}},
		{repo.slotColl, []mongo.IndexModel{
			// Slot lookup by resource, location and date is the hot path of availability and booking.
			{
				Keys: bson.D{
					{Key: "resourceId", Value: 1}, {Key: "locationId", Value: 1},
					{Key: "date", Value: 1}, {Key: "time", Value: 1}, {Key: "booked", Value: 1},
				},
				Options: options.Index().SetName("resource_location_date_time_idx"),
			},
		}},
		{repo.bookingColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_id")},
			{Keys: bson.D{{Key: "confirmationCode", Value: 1}}, Options: options.Index().SetUnique(true).SetName("unique_code")},
			{Keys: bson.D{{Key: "contact.phone", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("contact_status_idx")},
		}},
		{repo.contactColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetName("phone_idx")},
			{Keys: bson.D{{Key: "nationalId", Value: 1}}, Options: options.Index().SetName("national_id_idx")},
		}},
		{repo.attentionColl, []mongo.IndexModel{
			{Keys: bson.D{{Key: "contactPhone", Value: 1}, {Key: "open", Value: 1}}, Options: options.Index().SetName("contact_open_idx")},
		}},
	}
	for _, p := range plan {
		if _, err := p.coll.Indexes().CreateMany(ctx, p.models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", p.coll.Name(), err)
		}
	}
	return nil
}
