package storage

import (
	"context"
	"fmt"
	"time"

	"jatrackr/config"
	"jatrackr/core"
	"jatrackr/metrics"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Cursor interface for mocking
type Cursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
}

// SingleResult interface for mocking
type SingleResult interface {
	Decode(v interface{}) error
}

// Collection is the subset of *mongo.Collection the stores use
type Collection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	EnsureIndexes(ctx context.Context, models []mongo.IndexModel) error
}

// mongoCollection adapts *mongo.Collection to Collection
type mongoCollection struct {
	*mongo.Collection
}

func (m *mongoCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (Cursor, error) {
	cursor, err := m.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cursor, nil
}

func (m *mongoCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult {
	return m.Collection.FindOne(ctx, filter, opts...)
}

func (m *mongoCollection) EnsureIndexes(ctx context.Context, models []mongo.IndexModel) error {
	_, err := m.Collection.Indexes().CreateMany(ctx, models)
	return err
}

// MongoOptions tunes the MongoDB client
type MongoOptions struct {
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	// Ping makes NewMongoDB round-trip to the server before returning.
	Ping bool
}

// MongoDB holds the MongoDB client and database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
	settings config.DatabaseSettings
}

// NewMongoDB creates a new MongoDB connection. Incomplete settings and client
// failures are reported wrapped in core.ErrStorageUnavailable.
func NewMongoDB(ctx context.Context, settings config.DatabaseSettings, opts MongoOptions, logger *zap.SugaredLogger) (*MongoDB, error) {
	if err := settings.Validate(); err != nil {
		metrics.MongoConnections.WithLabelValues("invalid_settings").Inc()
		return nil, fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(settings.ConnectionString).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout)
	if opts.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(opts.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		metrics.MongoConnections.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: failed to connect to MongoDB: %w", core.ErrStorageUnavailable, err)
	}

	if opts.Ping {
		if err := client.Ping(ctx, nil); err != nil {
			metrics.MongoConnections.WithLabelValues("error").Inc()
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("%w: failed to ping MongoDB: %w", core.ErrStorageUnavailable, err)
		}
	}

	metrics.MongoConnections.WithLabelValues("success").Inc()
	logger.Infow("Connected to MongoDB",
		"uri", settings.Redacted(),
		"database", settings.DatabaseName)

	return &MongoDB{
		Client:   client,
		Database: client.Database(settings.DatabaseName),
		settings: settings,
	}, nil
}

// Collection returns the named collection behind the Collection interface
func (m *MongoDB) Collection(name string) Collection {
	return &mongoCollection{Collection: m.Database.Collection(name)}
}

// Settings returns the settings the connection was opened with
func (m *MongoDB) Settings() config.DatabaseSettings {
	return m.settings
}

// HealthCheck performs a health check on the MongoDB connection
func (m *MongoDB) HealthCheck(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// observe records the duration of a storage operation
func observe(collection, operation string, start time.Time) {
	metrics.StorageOperationDuration.WithLabelValues(collection, operation).Observe(time.Since(start).Seconds())
}

// translateWriteError maps driver write errors onto core sentinels
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", core.ErrConflict, err)
	}
	return err
}
