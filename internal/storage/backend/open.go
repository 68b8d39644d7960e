// Package backend opens the key-value store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log"

	"github.com/viewdesk/viewdesk/config"
	"github.com/viewdesk/viewdesk/internal/storage"
	"github.com/viewdesk/viewdesk/internal/storage/postgres"
	"github.com/viewdesk/viewdesk/internal/storage/redis"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Open returns the configured store and a function releasing its
// connections.
func Open(ctx context.Context, cfg *config.Config) (storage.KV, func(), error) {
	switch cfg.Storage.Driver {
	case DriverMemory, "":
		log.Println("[storage] using in-memory store; state is lost on restart")
		return storage.NewMemoryKV(), func() {}, nil

	case DriverPostgres:
		db, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		kv := postgres.NewKV(db)
		if err := kv.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Println("[storage] connected to postgres")
		return kv, func() { _ = db.Close() }, nil

	case DriverRedis:
		kv, err := redis.NewKV(cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			return nil, nil, err
		}
		log.Println("[storage] connected to redis")
		return kv, func() { _ = kv.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
