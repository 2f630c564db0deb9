package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"realms-server/internal/ai"
	"realms-server/internal/config"
	"realms-server/internal/database"
	"realms-server/internal/handler"
	"realms-server/internal/logger"
	"realms-server/internal/messaging"
	"realms-server/internal/middleware"
	"realms-server/internal/repository"
	"realms-server/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	ctx := context.Background()

	// PostgreSQL
	dbPool, err := database.NewPgxPool(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()

	migrator := database.NewMigrator(database.MigratorConfig{
		MigrationsPath: database.MigrationsPath,
		MigrationsFS:   database.MigrationsFS,
	}, dbPool, zapLogger)
	if err := migrator.Up(ctx); err != nil {
		zapLogger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	zapLogger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))

	// RabbitMQ
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	zapLogger.Info("Connected to RabbitMQ")

	archivePublisher, err := messaging.NewRabbitMQArchiveEventPublisher(rabbitConn, cfg.ArchiveEventQueue, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create archive event publisher", zap.Error(err))
	}

	// AI backend
	aiClient, err := ai.NewAIClient(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create AI client", zap.Error(err))
	}

	// Repositories
	userLimitRepo := repository.NewPgUserLimitRepository(dbPool, zapLogger)
	gameLogRepo := repository.NewPgGameLogRepository(dbPool, zapLogger)
	worldLoreRepo := repository.NewPgWorldLoreRepository(dbPool, zapLogger)
	digestCache := repository.NewRedisDigestCache(redisClient, zapLogger)

	// Services
	limitService := service.NewLimitService(userLimitRepo, cfg.DefaultRequestLimit, cfg.ResetWindow, cfg.AdRewardCount, zapLogger)
	storyService := service.NewStoryService(gameLogRepo, worldLoreRepo, digestCache, archivePublisher, cfg.ArchiveDigestSize, cfg.CacheTTL, zapLogger)
	turnEngine := service.NewTurnEngine(aiClient, limitService, storyService, service.NewImageSampler(), cfg.HistoryWindow, zapLogger)
	sessionService := service.NewSessionService(turnEngine, limitService, storyService, aiClient, zapLogger)
	chatService := service.NewChatService(aiClient, limitService, storyService, zapLogger)

	verifier, err := middleware.NewJWTVerifier(cfg.JWTSecret, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create JWT verifier", zap.Error(err))
	}

	realmsHandler := handler.NewRealmsHandler(sessionService, limitService, storyService, chatService, verifier, zapLogger)

	// Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ZapLoggingMiddleware(zapLogger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	prom := ginprometheus.NewPrometheus("realms")
	prom.Use(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	realmsHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zapLogger.Info("Realms server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Graceful shutdown failed", zap.Error(err))
	}

	zapLogger.Info("Realms server stopped")
}

// connectRabbitMQ retries the connection so the server survives broker
// startup order in compose environments.
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
