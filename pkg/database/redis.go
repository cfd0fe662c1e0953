package database

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisOptions definition redis connect setting.
// Addr selects a single node, otherwise MasterName and SentinelAddrs are used.
type RedisOptions struct {
	Addr          string
	MasterName    string
	SentinelAddrs []string
	Password      string
	DB            int
}

// NewRedisClient init Redis connection and ping it
func NewRedisClient(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	var rdb *redis.Client
	if o.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     o.Addr,
			Password: o.Password,
			DB:       o.DB,
		})
	} else {
		rdb = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    o.MasterName,
			SentinelAddrs: o.SentinelAddrs,
			Password:      o.Password,
			DB:            o.DB,
		})
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}
