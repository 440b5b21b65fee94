package schedulingRepo

import (
	"bookflow/models"
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListLocations returns every enabled location.
func (repo *MongoSchedulingRepo) ListLocations(ctx context.Context) ([]models.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := repo.locationColl.Find(ctx, bson.M{"enabled": true}, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, providerError(err, "locations not found")
	}
	defer cursor.Close(ctx)

	var locations []models.Location
	if err := cursor.All(ctx, &locations); err != nil {
		return nil, providerError(err, "error decoding locations")
	}
	return locations, nil
}

// ListCategories returns every resource category.
func (repo *MongoSchedulingRepo) ListCategories(ctx context.Context) ([]models.ResourceCategory, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := repo.categoryColl.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, providerError(err, "categories not found")
	}
	defer cursor.Close(ctx)

	var categories []models.ResourceCategory
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, providerError(err, "error decoding categories")
	}
	return categories, nil
}

// ListResources returns enabled resources matching the filter. Resources without
// a fixed location match every location filter.
func (repo *MongoSchedulingRepo) ListResources(ctx context.Context, f models.ResourceFilter) ([]models.Resource, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"enabled": true}
	if f.Category != "" {
		filter["category"] = bson.M{"$regex": "^" + regexp.QuoteMeta(f.Category) + "$", "$options": "i"}
	}
	if f.SearchName != "" {
		filter["displayName"] = bson.M{"$regex": regexp.QuoteMeta(f.SearchName), "$options": "i"}
	}
	if f.LocationID != "" {
		filter["$or"] = bson.A{
			bson.M{"locationId": f.LocationID},
			bson.M{"locationId": bson.M{"$exists": false}},
			bson.M{"locationId": ""},
		}
	}

	cursor, err := repo.resourceColl.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "displayName", Value: 1}}))
	if err != nil {
		return nil, providerError(err, "resources not found")
	}
	defer cursor.Close(ctx)

	var resources []models.Resource
	if err := cursor.All(ctx, &resources); err != nil {
		return nil, providerError(err, "error decoding resources")
	}
	return resources, nil
}

// GetResource fetches one resource, enabled or not.
func (repo *MongoSchedulingRepo) GetResource(ctx context.Context, resourceID string) (*models.Resource, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var r models.Resource
	if err := repo.resourceColl.FindOne(ctx, bson.M{"id": resourceID}).Decode(&r); err != nil {
		return nil, providerError(err, "resource %s not found", resourceID)
	}
	return &r, nil
}

// ListSlots returns the free slots of a resource at a location between two dates, inclusive.
func (repo *MongoSchedulingRepo) ListSlots(ctx context.Context, resourceID, locationID, startDate, endDate string) ([]models.Slot, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{"resourceId": resourceID, "locationId": locationID, "booked": false}
	dateRange := bson.M{}
	if startDate != "" {
		dateRange["$gte"] = startDate
	}
	if endDate != "" {
		dateRange["$lte"] = endDate
	}
	if len(dateRange) > 0 {
		filter["date"] = dateRange
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	cursor, err := repo.slotColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, providerError(err, "slots not found")
	}
	defer cursor.Close(ctx)

	var slots []models.Slot
	if err := cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("error decoding slots: %w", err)
	}
	return slots, nil
}
