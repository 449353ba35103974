package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (db *DB) Books() *mongo.Collection {
	return db.Database.Collection("books")
}

// EnsureIndexes creates the identifier and text indexes the cache relies on.
// Identifier indexes are sparse unique so no two records can share a non-empty
// identifier value. Safe to call on every startup.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	specs := make([]mongo.IndexModel, 0, len(allIdentifierFields)+1)
	for _, field := range allIdentifierFields {
		specs = append(specs, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		})
	}
	specs = append(specs, mongo.IndexModel{
		Keys: bson.D{
			{Key: "volumeInfo.title", Value: "text"},
			{Key: "volumeInfo.authors", Value: "text"},
		},
		Options: options.Index().SetName("volume_text"),
	})
	_, err := db.Books().Indexes().CreateMany(ctx, specs)
	return err
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
