package mongo

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	defaultURI      = "mongodb://localhost:27017"
	defaultDatabase = "voicebridge"

	connectTimeout = 10 * time.Second
	selectTimeout  = 5 * time.Second

	maxPoolSize = 10
	minPoolSize = 1
	maxConnIdle = 30 * time.Minute
)

// Config holds configuration for the store connection.
// Optional fields with defaults:
// - URI: MongoDB connection string (default: "mongodb://localhost:27017")
// - Database: database name (default: "voicebridge")
type Config struct {
	URI      string
	Database string
}

// NewConfigFromEnv builds a Config from environment variables.
func NewConfigFromEnv() Config {
	return Config{
		URI:      os.Getenv("MONGODB_URI"),
		Database: os.Getenv("MONGODB_DATABASE"),
	}
}

// Client owns the store connection and the database handle the repositories
// work against.
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient connects to the store and verifies the connection with a ping.
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	uri := config.URI
	if uri == "" {
		uri = defaultURI
	}

	dbName := config.Database
	if dbName == "" {
		dbName = defaultDatabase
	}

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(maxPoolSize).
		SetMinPoolSize(minPoolSize).
		SetMaxConnIdleTime(maxConnIdle).
		SetServerSelectionTimeout(selectTimeout).
		SetConnectTimeout(connectTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	logger.Info("Connected to call record store", zap.String("database", dbName))

	return &Client{
		Client:   client,
		Database: client.Database(dbName),
		logger:   logger,
	}, nil
}

// Close disconnects from the store.
func (c *Client) Close(ctx context.Context) error {
	if err := c.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from store: %w", err)
	}
	c.logger.Info("Disconnected from call record store")
	return nil
}
