package mongo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"note-sync/internal/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	// ErrNotInitialized is returned by Shutdown when Init never produced a client.
	ErrNotInitialized = errors.New("mongo client not initialized")
	// ErrShutdown is returned by Shutdown after the first call.
	ErrShutdown = errors.New("mongo client already shut down")
)

var (
	drv driver = liveDriver{}

	client  *mongo.Client
	db      *mongo.Database
	initErr error
	mu      sync.Mutex

	initOnce     sync.Once
	shutdownOnce sync.Once
	txnProbeOnce sync.Once

	txnCapable atomic.Bool
)

// SupportsTransactions reports whether the connected deployment can run
// multi-document transactions (replica set or mongos). Set once by Init.
func SupportsTransactions() bool { return txnCapable.Load() }

// Init initializes the MongoDB connection (first call wins, thread-safe).
// On failure client and database are nil and every later call returns the
// same error.
func Init(ctx context.Context, cfg config.Config, log *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	initOnce.Do(func() {
		opts := options.Client().
			ApplyURI(cfg.MongoURI).
			SetConnectTimeout(10 * time.Second).
			SetAppName("note-sync")

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		cli, err := drv.Connect(ctx, opts)
		if err != nil {
			log.Error("failed to connect to mongo", "err", err)
			setState(nil, nil, err)
			return
		}

		if err := drv.Ping(ctx, cli); err != nil {
			log.Error("failed to ping mongo", "err", err)
			_ = drv.Disconnect(context.Background(), cli)
			setState(nil, nil, err)
			return
		}

		database := cli.Database(cfg.MongoDBName)
		setState(cli, database, nil)
		probeTransactions(ctx, database, log)
		log.Info("successfully connected to mongo", "db", cfg.MongoDBName, "transactions", SupportsTransactions())
	})

	mu.Lock()
	defer mu.Unlock()
	return client, db, initErr
}

func setState(cli *mongo.Client, database *mongo.Database, err error) {
	mu.Lock()
	defer mu.Unlock()
	client = cli
	db = database
	initErr = err
}

// probeTransactions records once whether the deployment can run
// multi-document transactions.
func probeTransactions(ctx context.Context, database *mongo.Database, log *slog.Logger) {
	txnProbeOnce.Do(func() {
		topology, err := drv.Topology(ctx, database)
		if err != nil {
			log.Warn("topology probe failed, assuming stand-alone", "err", err)
			txnCapable.Store(false)
			return
		}
		txnCapable.Store(topology != "")
	})
}

// Client returns the singleton MongoDB client instance.
func Client() *mongo.Client {
	mu.Lock()
	defer mu.Unlock()
	return client
}

// DB returns the singleton MongoDB database instance.
func DB() *mongo.Database {
	mu.Lock()
	defer mu.Unlock()
	return db
}

// Shutdown disconnects the client. Only the first call does any work.
func Shutdown(ctx context.Context) error {
	err := ErrShutdown
	shutdownOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()

		if client == nil {
			err = ErrNotInitialized
			return
		}

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err = drv.Disconnect(ctx, client)
		client = nil
		db = nil
	})
	return err
}
