package conversationRepo

import (
	"bookflow/database"
	"bookflow/models"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConversationRepo implements ConversationRepository using MongoDB.
type MongoConversationRepo struct {
	coll *mongo.Collection
}

// NewMongoConversationRepo constructs the repository on the "conversations" collection.
func NewMongoConversationRepo(dbName string) *MongoConversationRepo {
	db := database.MongoClient.Database(dbName)
	return &MongoConversationRepo{coll: db.Collection("conversations")}
}

func (r *MongoConversationRepo) Get(ctx context.Context, sessionID string) (*models.ConversationSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s models.ConversationSession
	err := r.coll.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching conversation %s: %w", sessionID, err)
	}
	return &s, nil
}

// Save upserts the whole session document.
func (r *MongoConversationRepo) Save(ctx context.Context, s *models.ConversationSession) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"sessionId": s.SessionID}, s, opts); err != nil {
		return fmt.Errorf("error saving conversation %s: %w", s.SessionID, err)
	}
	return nil
}

// EnsureIndexes creates the unique session index and the channel lookup index.
func (r *MongoConversationRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sessionId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_session"),
		},
		{
			Keys:    bson.D{{Key: "channel", Value: 1}, {Key: "userId", Value: 1}},
			Options: options.Index().SetName("channel_user_idx"),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create conversation indexes: %w", err)
	}
	return nil
}
