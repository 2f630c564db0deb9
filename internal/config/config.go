package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for the realms server.
type Config struct {
	// Server settings
	Port     string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PostgreSQL settings
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBPassword    string        `envconfig:"DB_PASSWORD" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int32         `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_TIME" default:"5m"`

	// Redis settings (archive digest and world lore cache)
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"10m"`

	// RabbitMQ settings
	RabbitMQURL       string `envconfig:"RABBITMQ_URL" required:"true"`
	ArchiveEventQueue string `envconfig:"ARCHIVE_EVENT_QUEUE" default:"archive_events"`

	// AI backend settings
	AIClientType string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIAPIKey     string        `envconfig:"AI_API_KEY"`
	AIBaseURL    string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIModel      string        `envconfig:"AI_MODEL" required:"true"`
	AIImageModel string        `envconfig:"AI_IMAGE_MODEL" default:"dall-e-3"`
	AITimeout    time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`

	// JWT settings. Tokens are issued by the external auth service;
	// this server only verifies them.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Gameplay constants
	DefaultRequestLimit int           `envconfig:"DEFAULT_REQUEST_LIMIT" default:"5"`
	ResetWindow         time.Duration `envconfig:"RESET_WINDOW" default:"24h"`
	AdRewardCount       int           `envconfig:"AD_REWARD_COUNT" default:"10"`
	HistoryWindow       int           `envconfig:"HISTORY_WINDOW" default:"5"`
	ArchiveDigestSize   int           `envconfig:"ARCHIVE_DIGEST_SIZE" default:"10"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig reads configuration from environment variables. A missing
// AI credential is a startup failure, not something to discover on the
// first turn.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if strings.ToLower(cfg.AIClientType) == "openai" && cfg.AIAPIKey == "" {
		return nil, fmt.Errorf("AI_API_KEY is required when AI_CLIENT_TYPE is openai")
	}

	return &cfg, nil
}
