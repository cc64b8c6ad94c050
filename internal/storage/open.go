package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"qr-ticketing/internal/config"
	"qr-ticketing/internal/logger"
)

const (
	maxConnectAttempts = 5
	connectRetryDelay  = 2 * time.Second
)

// Open builds the backend selected by cfg.Driver and verifies it answers.
func Open(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (KV, error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("STORAGE", "Using in-memory storage, tickets are lost on restart")
		return NewMemoryKV(), nil
	case "sqlite", "":
		return openSQLite(ctx, cfg.SQLitePath, log)
	case "postgres":
		return openPostgres(ctx, cfg.PostgresDSN, log)
	case "redis":
		return openRedis(ctx, cfg.Redis, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func openSQLite(ctx context.Context, path string, log *logger.Logger) (KV, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+path+"?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	sqldb.SetMaxOpenConns(1)

	kv := NewBunKV(bun.NewDB(sqldb, sqlitedialect.New()))
	if err := kv.Migrate(ctx); err != nil {
		kv.Close()
		return nil, err
	}
	log.LogDatabase("OPEN", "ticket_collections", fmt.Sprintf("SQLite database ready at %s", path))
	return kv, nil
}

func openPostgres(ctx context.Context, dsn string, log *logger.Logger) (KV, error) {
	if dsn == "" {
		return nil, fmt.Errorf("POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	for i := 0; i < maxConnectAttempts; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxConnectAttempts))
		sqldb, err = sql.Open("postgres", dsn)
		if err == nil {
			err = sqldb.PingContext(ctx)
			if err == nil {
				break
			}
			sqldb.Close()
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxConnectAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectRetryDelay):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres after %d attempts: %w", maxConnectAttempts, err)
	}

	kv := NewBunKV(bun.NewDB(sqldb, pgdialect.New()))
	if err := kv.Migrate(ctx); err != nil {
		kv.Close()
		return nil, err
	}
	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return kv, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (KV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection error: %w", err)
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return NewRedisKV(client, cfg.KeyPrefix), nil
}
