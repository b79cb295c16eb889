// AngelaMos | 2026
// source.go

package legacy

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Decoder is satisfied by *mongo.Cursor.
type Decoder interface {
	Decode(v any) error
}

// Source yields every document of a collection in insertion order.
type Source interface {
	Each(ctx context.Context, collection string, fn func(Decoder) error) error
}

type MongoSource struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoSource(ctx context.Context, uri, database string) (*MongoSource, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		//nolint:errcheck // already failing
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoSource{client: client, db: client.Database(database)}, nil
}

func (s *MongoSource) Each(ctx context.Context, collection string, fn func(Decoder) error) error {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := s.db.Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx) //nolint:errcheck // read-only cursor

	for cursor.Next(ctx) {
		if err := fn(cursor); err != nil {
			return err
		}
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", collection, err)
	}
	return nil
}

func (s *MongoSource) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
