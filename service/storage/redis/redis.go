package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

var (
	rdb *redis.Client
	ctx = context.Background()
)

func InitRedis(c Config) error {
	rdb = redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	return rdb.Ping(ctx).Err()
}

func GetClient() *redis.Client {
	return rdb
}

func Ctx() context.Context {
	return ctx
}

func Close() error {
	if rdb == nil {
		return nil
	}
	err := rdb.Close()
	rdb = nil
	return err
}
