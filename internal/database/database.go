package database

import (
	"context"
	"fmt"
	"time"

	"gadget-grove/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Service represents a connected document store.
type Service interface {
	// Health returns a map of health status information.
	Health(ctx context.Context) map[string]string

	// Collection returns a handle to the named collection.
	Collection(name string) *mongo.Collection

	// Close disconnects the client.
	Close(ctx context.Context) error
}

type service struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// New connects to MongoDB once and verifies the deployment with a ping
// against the admin database.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (Service, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(serverAPI).
		SetBSONOptions(&options.BSONOptions{
			// Nested documents in pass-through attributes decode as maps
			DefaultDocumentM: true,
		})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info("Pinged deployment, connected to MongoDB",
		zap.String("database", cfg.Database),
	)

	return &service{
		client: client,
		db:     client.Database(cfg.Database),
		logger: logger,
	}, nil
}

func (s *service) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Health pings the primary and reports basic pool statistics.
func (s *service) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	stats := make(map[string]string)

	start := time.Now()
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		s.logger.Error("Database health check failed", zap.Error(err))
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["database"] = s.db.Name()
	stats["latency"] = time.Since(start).String()
	stats["sessions_in_progress"] = fmt.Sprintf("%d", s.client.NumberSessionsInProgress())

	return stats
}

func (s *service) Close(ctx context.Context) error {
	s.logger.Info("Disconnecting from MongoDB", zap.String("database", s.db.Name()))
	return s.client.Disconnect(ctx)
}
