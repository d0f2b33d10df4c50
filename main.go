package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/formacionweb360/training-service/internal/cache"
	"github.com/formacionweb360/training-service/internal/config"
	"github.com/formacionweb360/training-service/internal/events"
	"github.com/formacionweb360/training-service/internal/handlers"
	"github.com/formacionweb360/training-service/internal/metrics"
	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/repositories/casdoor"
	"github.com/formacionweb360/training-service/internal/repositories/postgres"
	"github.com/formacionweb360/training-service/internal/services"
	"github.com/formacionweb360/training-service/internal/utils"
	"github.com/formacionweb360/training-service/internal/validator"
	"github.com/formacionweb360/training-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := utils.NewJSONLogger(cfg.LogLevel, cfg.LogFile)
	logger := utils.NewSlogLogger(slogLogger)

	metrics.Init()

	// Initialize database, migrating when AUTO_MIGRATE is set
	db, err := pkg.InitDatabase(cfg, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, sessions fall back to the database", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	// Initialize events
	bus := events.NewLocalBus(slogLogger)
	publishers := []message.Publisher{bus}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, slogLogger)
		if err != nil {
			logger.Warn("Kafka publisher disabled", "brokers", cfg.Kafka.Brokers, "error", err)
		} else {
			publishers = append(publishers, kafkaPublisher)
		}
	}
	publisher := events.NewWatermillPublisher(slogLogger, publishers...)

	auditCtx, stopAudit := context.WithCancel(context.Background())
	audit := events.NewAuditSubscriber(bus, repo.Activity(), slogLogger)
	if err := audit.Start(auditCtx); err != nil {
		log.Fatalf("Failed to start audit subscriber: %v", err)
	}

	var identity repositories.IdentityProvider
	if cfg.Casdoor.Enabled() {
		identity = casdoor.NewIdentityCasdoor(casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		}, redisClient)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:         repo,
		Publisher:    publisher,
		CacheManager: cache.NewCacheManager(redisClient),
		Identity:     identity,
		Logger:       slogLogger,
		Validator:    validator.New(),
	}, services.NewServiceManagerConfig(cfg))
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlers.NewHandlerManager(serviceManager, logger, cfg.RateLimit).SetupRoutes(router)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Flushes every open course view before the database goes away
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	stopAudit()
	if err := publisher.Close(); err != nil {
		logger.Error("Failed to close publishers", "error", err)
	}
	audit.Wait()

	// Closes the database and redis connections
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close repositories", "error", err)
	}

	logger.Info("Server exited")
}
