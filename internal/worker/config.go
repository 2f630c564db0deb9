package worker

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds the digest worker configuration.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	DatabaseURL string `env:"DATABASE_URL" env-required:"true"`

	RedisAddr     string        `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`
	DigestTTL     time.Duration `env:"DIGEST_TTL" env-default:"10m"`

	RabbitMQURL       string `env:"RABBITMQ_URL" env-required:"true"`
	ArchiveEventQueue string `env:"ARCHIVE_EVENT_QUEUE" env-default:"archive_events"`
	ConsumerName      string `env:"RABBITMQ_CONSUMER_NAME" env-default:"archive_digest_worker"`

	ArchiveDigestSize int `env:"ARCHIVE_DIGEST_SIZE" env-default:"10"`
}

// Load reads the worker configuration from environment variables and an
// optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("Error loading worker configuration: %v", err)
	}
	return &cfg
}
