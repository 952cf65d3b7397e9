// Package backend opens the storage backend named in the configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/aanand-mishra/class-registration/internal/config"
	"github.com/aanand-mishra/class-registration/internal/storage"
	"github.com/aanand-mishra/class-registration/internal/storage/jsonfile"
	"github.com/aanand-mishra/class-registration/internal/storage/memory"
	mongostore "github.com/aanand-mishra/class-registration/internal/storage/mongo"
	"github.com/aanand-mishra/class-registration/internal/storage/postgres"
	redisstore "github.com/aanand-mishra/class-registration/internal/storage/redis"
	"github.com/aanand-mishra/class-registration/internal/storage/sqlite"
	"github.com/aanand-mishra/class-registration/internal/storage/sqliteasync"
)

// Open connects to the backend selected by cfg.Backend. A nil clock
// leaves each backend on storage.DefaultClock.
//
// ctx bounds connection setup (ping, schema and index creation) for
// network backends; it is not retained.
func Open(ctx context.Context, cfg config.Storage, clock storage.Clock) (storage.Storage, error) {
	if clock == nil {
		clock = storage.DefaultClock
	}

	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := sqlite.New(cfg.SQLitePath, sqlite.WithClock(clock))
		if err != nil {
			return nil, fmt.Errorf("backend.Open: %w", err)
		}
		return s, nil

	case config.BackendSQLiteAsync:
		s, err := sqliteasync.Open(cfg.SQLitePath, []sqlite.Option{sqlite.WithClock(clock)})
		if err != nil {
			return nil, fmt.Errorf("backend.Open: %w", err)
		}
		return s, nil

	case config.BackendJSONFile:
		s, err := jsonfile.New(cfg.JSONPath, jsonfile.WithClock(clock))
		if err != nil {
			return nil, fmt.Errorf("backend.Open: %w", err)
		}
		return s, nil

	case config.BackendMongo:
		s, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, mongostore.WithClock(clock))
		if err != nil {
			return nil, fmt.Errorf("backend.Open: %w", err)
		}
		return s, nil

	case config.BackendPostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.WithClock(clock))
		if err != nil {
			return nil, fmt.Errorf("backend.Open: %w", err)
		}
		return s, nil

	case config.BackendRedis:
		opts := []redisstore.Option{redisstore.WithClock(clock)}
		if cfg.RedisPrefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.RedisPrefix))
		}
		s, err := redisstore.Open(ctx, cfg.RedisURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("backend.Open: %w", err)
		}
		return s, nil

	case config.BackendMemory:
		return memory.New(memory.WithClock(clock)), nil

	default:
		return nil, fmt.Errorf("backend.Open: unknown backend %q", cfg.Backend)
	}
}
