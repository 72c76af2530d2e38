package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"cardiotrack/pkg/platform/lists"
)

// Server captures process-level configuration.
type Server struct {
	Addr     string
	LogLevel string
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Scoring  ScoringConfig
}

// DatabaseConfig selects the persistence backend. An empty URL runs the
// service on in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the optional stats cache.
type RedisConfig struct {
	URL           string
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	StatsCacheTTL time.Duration
}

// KafkaConfig configures the outbox relay. Empty Brokers disables publishing;
// events still accumulate in the outbox table.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	PollInterval time.Duration
	BatchSize    int
}

// ScoringConfig points at the serialized scoring parameters.
type ScoringConfig struct {
	ModelPath string
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; real
// environment variables win over it.
func FromEnv() Server {
	_ = godotenv.Load()

	return Server{
		Addr:     getEnv("CARDIOTRACK_ADDR", ":8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:           os.Getenv("REDIS_URL"),
			PoolSize:      getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:  getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:   getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:   getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:  getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			StatsCacheTTL: getDuration("STATS_CACHE_TTL", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:      lists.Split(os.Getenv("KAFKA_BROKERS")),
			Topic:        getEnv("KAFKA_TOPIC", "cardiotrack.assessments"),
			PollInterval: getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 100),
		},
		Scoring: ScoringConfig{
			ModelPath: os.Getenv("SCORING_MODEL_PATH"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
