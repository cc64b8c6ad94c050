package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_DRIVER", "KAFKA_ENABLED", "KAFKA_BROKERS", "SCANNER_FPS", "SCANNER_REPEAT_WINDOW"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "qr-ticketing:", cfg.Storage.Redis.KeyPrefix)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10, cfg.Scanner.FPS)
	assert.Equal(t, 250, cfg.Scanner.QRBox)
	assert.Equal(t, 2*time.Second, cfg.Scanner.RepeatWindow)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SCANNER_REPEAT_WINDOW", "500ms")
	t.Setenv("SCANNER_FPS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, 3, cfg.Storage.Redis.DB)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 500*time.Millisecond, cfg.Scanner.RepeatWindow)
	assert.Equal(t, 10, cfg.Scanner.FPS, "invalid values fall back to the default")
}
