package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// CreatedAtIndexName names the index backing the newest-first listing.
const CreatedAtIndexName = "createdAt_desc"

// ProductIndexes returns the indexes the products collection relies on.
func ProductIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName(CreatedAtIndexName),
		},
	}
}

// EnsureIndexes creates any missing product indexes. Creating an index
// that already exists with the same definition is a no-op in MongoDB.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection, logger *zap.Logger) error {
	logger.Info("Ensuring collection indexes", zap.String("collection", coll.Name()))

	names, err := coll.Indexes().CreateMany(ctx, ProductIndexes())
	if err != nil {
		logger.Error("Failed to create indexes", zap.Error(err))
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Info("Indexes ready", zap.Strings("indexes", names))
	return nil
}
