package schedulingRepo

import (
	"bookflow/database"
	"bookflow/services/scheduling"
	"errors"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const opTimeout = 5 * time.Second

// MongoSchedulingRepo implements scheduling.Provider on MongoDB collections.
type MongoSchedulingRepo struct {
	locationColl  *mongo.Collection
	categoryColl  *mongo.Collection
	resourceColl  *mongo.Collection
	slotColl      *mongo.Collection
	bookingColl   *mongo.Collection
	contactColl   *mongo.Collection
	attentionColl *mongo.Collection
	now           func() time.Time
}

var _ scheduling.Provider = (*MongoSchedulingRepo)(nil)

// NewMongoSchedulingRepo constructs a new instance of MongoSchedulingRepo.
func NewMongoSchedulingRepo(dbName string) *MongoSchedulingRepo {
	db := database.MongoClient.Database(dbName)
	return &MongoSchedulingRepo{
		locationColl:  db.Collection("locations"),
		categoryColl:  db.Collection("categories"),
		resourceColl:  db.Collection("resources"),
		slotColl:      db.Collection("slots"),
		bookingColl:   db.Collection("bookings"),
		contactColl:   db.Collection("contacts"),
		attentionColl: db.Collection("attentions"),
		now:           time.Now,
	}
}

// providerError maps driver errors onto the provider error contract.
func providerError(err error, format string, args ...interface{}) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return scheduling.NewNotFound(format, args...)
	}
	return &scheduling.ProviderError{HTTPStatus: http.StatusServiceUnavailable, Message: err.Error()}
}
