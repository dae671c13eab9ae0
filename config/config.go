package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName            string `env:"APP_NAME" envDefault:"camellia" validate:"required"`
	Port               int    `env:"PORT" envDefault:"3010" validate:"min=1,max=65535"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	PrettyLogs         bool   `env:"PRETTY_LOGS" envDefault:"false"`
	StartupMaxAttempts int    `env:"STARTUP_MAX_ATTEMPTS" envDefault:"5" validate:"min=1"`

	// PostgreSQL (record store)
	DatabaseHost                  string        `env:"DB_HOST" envDefault:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" envDefault:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" envDefault:""`
	DatabasePassword              string        `env:"DB_PASSWORD" envDefault:""`
	DatabaseName                  string        `env:"DB_NAME" envDefault:"camellia" validate:"required"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" envDefault:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" envDefault:"db/pg"`
	DatabaseMigrationVersion      uint          `env:"DB_MIGRATION_VERSION" envDefault:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" envDefault:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" envDefault:"true"`

	// Matching
	MatchNameThreshold    float64 `env:"MATCH_NAME_THRESHOLD" envDefault:"0.90" validate:"gt=0,lte=1"`
	MatchAddressThreshold float64 `env:"MATCH_ADDRESS_THRESHOLD" envDefault:"0.85" validate:"gt=0,lte=1"`
	MatchNameZipThreshold float64 `env:"MATCH_NAME_ZIP_THRESHOLD" envDefault:"0.95" validate:"gt=0,lte=1"`
	CandidatePoolLimit    int     `env:"CANDIDATE_POOL_LIMIT" envDefault:"500" validate:"min=1"`

	// Normalization
	DefaultCountryCode string `env:"DEFAULT_COUNTRY_CODE" envDefault:"1" validate:"numeric"`
	DefaultRegion      string `env:"DEFAULT_REGION" envDefault:"CA" validate:"len=2"`

	// Categories
	CategoryMappingPath       string `env:"CATEGORY_MAPPING_PATH" envDefault:""`
	CategoryFallbackSlug      string `env:"CATEGORY_FALLBACK_SLUG" envDefault:"other"`
	CategorySubSlugTrueParent bool   `env:"CATEGORY_SUB_SLUG_TRUE_PARENT" envDefault:"false"`

	// Batching
	ChunkSize   int    `env:"CHUNK_SIZE" envDefault:"250" validate:"min=1,max=1000"`
	RecordLimit int    `env:"RECORD_LIMIT" envDefault:"0" validate:"min=0"`
	ReportDir   string `env:"REPORT_DIR" envDefault:"reports"`

	// Kafka
	KafkaBrokers        []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaFeedTopic      string   `env:"KAFKA_FEED_TOPIC" envDefault:"crawled-listings"`
	KafkaConsumerGroup  string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"camellia-ingest"`
	KafkaEventsTopic    string   `env:"KAFKA_EVENTS_TOPIC" envDefault:"business-events"`
	KafkaEventsEnabled  bool     `env:"KAFKA_EVENTS_ENABLED" envDefault:"false"`
	KafkaBatchSize      int      `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	KafkaBatchTimeoutMS int      `env:"KAFKA_BATCH_TIMEOUT_MS" envDefault:"100"`
	KafkaRequiredAcks   int      `env:"KAFKA_REQUIRED_ACKS" envDefault:"1" validate:"oneof=-1 0 1"`
	KafkaCompression    string   `env:"KAFKA_COMPRESSION" envDefault:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`

	// Redis (live-run lock)
	RedisHost     string        `env:"REDIS_HOST" envDefault:""`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RunLockTTL    time.Duration `env:"RUN_LOCK_TTL" envDefault:"30m"`

	// Tracing
	OTLPEndpoint string `env:"OTLP_ENDPOINT" envDefault:""`
	OTLPProtocol string `env:"OTLP_PROTOCOL" envDefault:"grpc" validate:"oneof=grpc http"`

	// Metrics
	PushgatewayURL string `env:"PUSHGATEWAY_URL" envDefault:""`
}

// Load reads an optional .env file, binds the environment and validates the result.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RedisEnabled reports whether the live-run lock is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
