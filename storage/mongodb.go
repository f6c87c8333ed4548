package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cyberpaste/cyberpaste/models"
)

// MongoStore implements PasteStore using MongoDB. A TTL index on expires_at
// lets the server purge expired pastes on its own; the lazy-expiry and sweep
// paths still work on top of it for records the monitor has not reached yet.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoStore creates a new MongoDB storage backend.
func NewMongoStore(uri, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(dbName).Collection("pastes"),
		timeout:    10 * time.Second,
	}
	if err := store.createIndexes(); err != nil {
		return nil, err
	}
	return store, nil
}

// createIndexes creates the TTL index on expires_at plus a created_at index.
// Index creation is idempotent, Mongo no-ops when they already exist.
func (m *MongoStore) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ttlIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}
	createdAtIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{ttlIndex, createdAtIndex})
	return err
}

// Insert saves a paste, rejecting duplicate ids via the unique _id key.
func (m *MongoStore) Insert(ctx context.Context, paste *models.Paste) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, err := m.collection.InsertOne(ctx, paste)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateID
	}
	return err
}

// Get retrieves a paste by id, or (nil, nil) when absent.
func (m *MongoStore) Get(ctx context.Context, id string) (*models.Paste, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var paste models.Paste
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&paste)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &paste, nil
}

// Exists checks if a paste exists by id.
func (m *MongoStore) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	n, err := m.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a paste. DeleteOne on an absent id is already a no-op.
func (m *MongoStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// IncrementViews bumps the view counter with $inc and returns the
// post-update count.
func (m *MongoStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated struct {
		Views int64 `bson:"views"`
	}
	err := m.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"views": 1}},
		opts,
	).Decode(&updated)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return updated.Views, nil
}

// CountAll returns the number of stored documents.
func (m *MongoStore) CountAll(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	return m.collection.CountDocuments(ctx, bson.M{})
}

// ScanExpired returns ids whose expires_at lies at or before now. Documents
// without expires_at never expire and are not matched.
func (m *MongoStore) ScanExpired(ctx context.Context, now time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := m.collection.Find(ctx, bson.M{"expires_at": bson.M{"$lte": now}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return ids, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

// Close closes the MongoDB connection.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return m.client.Disconnect(ctx)
}
