package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"qr-ticketing/internal/config"
	"qr-ticketing/internal/logger"
)

// exerciseKV runs the behaviour every backend must share.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, kv.Ping(ctx))

	val, err := kv.Get(ctx, "validTickets")
	require.NoError(t, err)
	assert.Nil(t, val, "missing keys read as nil")

	err = kv.SetMany(ctx, map[string][]byte{
		"validTickets":     []byte(`[{"id":"1"}]`),
		"validatedTickets": []byte(`[]`),
	})
	require.NoError(t, err)

	val, err = kv.Get(ctx, "validTickets")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(val))

	val, err = kv.Get(ctx, "validatedTickets")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(val))

	// overwrite one key, leave the other alone
	require.NoError(t, kv.SetMany(ctx, map[string][]byte{"validTickets": []byte(`[]`)}))

	val, err = kv.Get(ctx, "validTickets")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(val))

	val, err = kv.Get(ctx, "validatedTickets")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(val))
}

func TestMemoryKV(t *testing.T) {
	kv := NewMemoryKV()
	exerciseKV(t, kv)

	require.NoError(t, kv.Close())
	_, err := kv.Get(context.Background(), "validTickets")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, kv.Ping(context.Background()), ErrClosed)
}

func TestMemoryKVCopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, kv.SetMany(ctx, map[string][]byte{"k": buf}))
	buf[0] = 'x'

	val, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(val))
}

func setupTestBunKV(t *testing.T) *BunKV {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	kv := NewBunKV(bun.NewDB(sqldb, sqlitedialect.New()))
	require.NoError(t, kv.Migrate(context.Background()))
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestBunKV(t *testing.T) {
	kv := setupTestBunKV(t)
	exerciseKV(t, kv)

	// running the migration again is harmless
	require.NoError(t, kv.Migrate(context.Background()))
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisKV(t *testing.T) {
	client, mr := setupTestRedis(t)
	kv := NewRedisKV(client, "test:")
	exerciseKV(t, kv)

	raw, err := mr.Get("test:validTickets")
	require.NoError(t, err)
	assert.Equal(t, "[]", raw, "keys are namespaced by the prefix")
}

func TestRedisKVUnavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	kv := NewRedisKV(client, "test:")
	mr.Close()

	ctx := context.Background()
	assert.Error(t, kv.Ping(ctx))
	_, err := kv.Get(ctx, "validTickets")
	assert.Error(t, err)
	assert.Error(t, kv.SetMany(ctx, map[string][]byte{"validTickets": []byte(`[]`)}))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	log := logger.Discard()

	kv, err := Open(ctx, config.StorageConfig{Driver: "memory"}, log)
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	kv, err = Open(ctx, config.StorageConfig{Driver: "sqlite", SQLitePath: t.TempDir() + "/tickets.db"}, log)
	require.NoError(t, err)
	assert.IsType(t, &BunKV{}, kv)
	exerciseKV(t, kv)
	require.NoError(t, kv.Close())

	_, mr := setupTestRedis(t)
	kv, err = Open(ctx, config.StorageConfig{Driver: "redis", Redis: config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "open:"}}, log)
	require.NoError(t, err)
	assert.IsType(t, &RedisKV{}, kv)
	require.NoError(t, kv.Close())

	_, err = Open(ctx, config.StorageConfig{Driver: "postgres"}, log)
	assert.Error(t, err, "postgres needs a DSN")

	_, err = Open(ctx, config.StorageConfig{Driver: "etcd"}, log)
	assert.Error(t, err)
}
