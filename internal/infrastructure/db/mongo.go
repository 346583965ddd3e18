package db

import (
	"context"
	"time"

	"github.com/IgorGrieder/linkhive/internal/infrastructure/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.uber.org/zap"
)

// Mongo wraps the MongoDB client and database
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// ConnectMongo connects with OpenTelemetry command monitoring. Click
// accounting runs multi-document transactions, so the deployment must be a
// replica set or sharded cluster.
func ConnectMongo(uri, dbName string, timeout time.Duration) (*Mongo, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMonitor(otelmongo.NewMonitor()).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	m := &Mongo{
		Client:   client,
		Database: client.Database(dbName),
	}

	logger.Info("MongoDB connected", zap.String("database", dbName))
	return m, nil
}

// Ping reports whether the primary is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

// Disconnect closes the MongoDB connection
func (m *Mongo) Disconnect() error {
	if m.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.Client.Disconnect(ctx)
}

// Collection returns the specified collection
func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}
