package storecrawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionCollection = "sessions"

// MongoSessionStore keeps snapshots in a Mongo collection, one document per
// key. Useful when several crawler hosts need to share one login session.
type MongoSessionStore struct {
	client   *mongo.Client
	database string
}

type sessionDocument struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func NewMongoSessionStore(uri, database string) (*MongoSessionStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("could not connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &MongoSessionStore{client: client, database: database}, nil
}

func (s *MongoSessionStore) collection() *mongo.Collection {
	return s.client.Database(s.database).Collection(sessionCollection)
}

func (s *MongoSessionStore) Exists(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	count, err := s.collection().CountDocuments(ctx, bson.D{{Key: "_id", Value: key}})
	return err == nil && count > 0
}

func (s *MongoSessionStore) Read(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var doc sessionDocument
	err := s.collection().FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("could not read session %s: %w", key, err)
	}
	return doc.Data, nil
}

func (s *MongoSessionStore) Write(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	doc := sessionDocument{Key: key, Data: data, UpdatedAt: time.Now()}
	_, err := s.collection().ReplaceOne(ctx, bson.D{{Key: "_id", Value: key}}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("could not save session %s: %w", key, err)
	}
	return nil
}

// Delete is idempotent; deleting an absent session is not an error.
func (s *MongoSessionStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.collection().DeleteOne(ctx, bson.D{{Key: "_id", Value: key}})
	if err != nil {
		return fmt.Errorf("could not delete session %s: %w", key, err)
	}
	return nil
}

func (s *MongoSessionStore) ModTime(key string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var doc sessionDocument
	err := s.collection().FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, fmt.Errorf("session %s not found", key)
	}
	if err != nil {
		return time.Time{}, err
	}
	return doc.UpdatedAt, nil
}

// Close disconnects the underlying client.
func (s *MongoSessionStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
