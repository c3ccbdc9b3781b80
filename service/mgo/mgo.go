package mgo

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"LPChat/tools/errs"
)

// Config represents the MongoDB configuration.
type Config struct {
	URI         string
	Database    string
	MaxPoolSize int
	MaxRetry    int
}

var (
	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
)

// Init connects with bounded retry and a short backoff between attempts.
func Init(ctx context.Context, cfg *Config) error {
	if cfg.URI == "" {
		return errs.New("mongo uri is required")
	}
	if cfg.Database == "" {
		return errs.New("mongo database is required")
	}
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 3
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxPoolSize))
	}

	var (
		cli *mongo.Client
		err error
	)
	for i := 0; i < cfg.MaxRetry; i++ {
		cli, err = connect(ctx, opts)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second / 2):
		}
	}
	if err != nil {
		return errs.WrapMsg(err, "failed to connect to MongoDB", "uri", cfg.URI)
	}

	mu.Lock()
	client = cli
	db = cli.Database(cfg.Database)
	mu.Unlock()
	return nil
}

func connect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cli, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(cctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(cctx)
		return nil, err
	}
	return cli, nil
}

func GetDB() *mongo.Database {
	mu.RLock()
	defer mu.RUnlock()
	return db
}

func Close(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()
	if client == nil {
		return nil
	}
	err := client.Disconnect(ctx)
	client = nil
	db = nil
	return err
}
