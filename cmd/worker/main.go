package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"realms-server/internal/worker"
)

func main() {
	cfg := worker.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", "archive-digest-worker").
		Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create database pool")
	}
	defer dbPool.Close()
	if err := dbPool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}
	logger.Info().Msg("Connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")

	// RabbitMQ
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer rabbitConn.Close()
	logger.Info().Msg("Connected to RabbitMQ")

	builder := worker.NewDigestBuilder(dbPool, redisClient, cfg.ArchiveDigestSize, cfg.DigestTTL, logger)
	consumer := worker.NewArchiveEventConsumer(rabbitConn, cfg.ArchiveEventQueue, cfg.ConsumerName, builder, logger)

	// Rebuild once at startup so a fresh deployment serves a digest
	// before the first event arrives.
	if err := builder.Rebuild(ctx); err != nil {
		logger.Warn().Err(err).Msg("Initial digest rebuild failed")
	}

	go func() {
		if err := consumer.StartConsuming(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Consumer stopped with error")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
	}

	consumer.Stop()
	logger.Info().Msg("Archive digest worker stopped")
}

func connectRabbitMQ(url string, logger zerolog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn().
			Int("attempt", i+1).
			Int("max_attempts", maxRetries).
			Err(err).
			Msg("Failed to connect to RabbitMQ")
		time.Sleep(retryDelay)
	}
	return nil, err
}
