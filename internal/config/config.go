package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Log     LogConfig
	Storage StorageConfig
	Kafka   KafkaConfig
	Scanner ScannerConfig
	QR      QRConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Dir   string
	Level string
}

type StorageConfig struct {
	Driver      string // memory, sqlite, postgres, redis
	SQLitePath  string
	PostgresDSN string
	Redis       RedisConfig
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

type ScannerConfig struct {
	Enabled      bool
	Source       string // lines, frames
	Device       string
	FramePath    string
	FPS          int
	QRBox        int
	RepeatWindow time.Duration
}

type QRConfig struct {
	ImageSize int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Log: LogConfig{
			Dir:   os.Getenv("LOG_DIR"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Driver:      strings.ToLower(getEnv("STORAGE_DRIVER", "sqlite")),
			SQLitePath:  getEnv("SQLITE_PATH", "data/tickets.db"),
			PostgresDSN: os.Getenv("POSTGRES_DSN"),
			Redis: RedisConfig{
				Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
				Password:  os.Getenv("REDIS_PASSWORD"),
				DB:        getEnvInt("REDIS_DB", 0),
				KeyPrefix: getEnv("REDIS_KEY_PREFIX", "qr-ticketing:"),
			},
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getEnv("KAFKA_TOPIC", "ticketing.tickets"),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
		},
		Scanner: ScannerConfig{
			Enabled:      getEnvBool("SCANNER_ENABLED", false),
			Source:       strings.ToLower(getEnv("SCANNER_SOURCE", "lines")),
			Device:       getEnv("SCANNER_DEVICE", "/dev/stdin"),
			FramePath:    getEnv("SCANNER_FRAME_PATH", "frame.jpg"),
			FPS:          getEnvInt("SCANNER_FPS", 10),
			QRBox:        getEnvInt("SCANNER_QRBOX", 250),
			RepeatWindow: getEnvDuration("SCANNER_REPEAT_WINDOW", 2*time.Second),
		},
		QR: QRConfig{
			ImageSize: getEnvInt("QR_IMAGE_SIZE", 256),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty items.
func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
