package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vectorprep/session-service/internal/cache"
	"github.com/vectorprep/session-service/internal/config"
	"github.com/vectorprep/session-service/internal/events"
	"github.com/vectorprep/session-service/internal/handlers"
	"github.com/vectorprep/session-service/internal/models"
	"github.com/vectorprep/session-service/internal/repositories/postgres"
	"github.com/vectorprep/session-service/internal/services"
	"github.com/vectorprep/session-service/internal/utils"
	"github.com/vectorprep/session-service/internal/validator"
	"github.com/vectorprep/session-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogLogger := logger.(*utils.SlogLogger).GetSlogLogger()

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.Lead{},
		&models.Question{},
		&models.MockTest{},
		&models.Attempt{},
		&models.AnswerEntry{},
	); err != nil {
		logger.LogError(err, "Failed to run migrations")
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.LogError(err, "Failed to connect to Redis")
		os.Exit(1)
	}
	defer redisClient.Close()

	cacheService := cache.NewRedisCache(redisClient, slogLogger)

	publisher, err := cfg.Events.CreateEventPublisher(slogLogger)
	if err != nil {
		logger.LogError(err, "Failed to create event publisher, falling back to mock")
		publisher = events.NewMockEventPublisher(slogLogger)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	v := validator.New()

	serviceManager := services.NewServiceManager(repo, cacheService, publisher, slogLogger, v, cfg.AttemptLockWait)
	handlerManager := handlers.NewHandlerManager(serviceManager, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runAbandonmentSweep(sweepCtx, serviceManager.Attempt(), cfg, logger)

	go func() {
		logger.Info("Starting session service", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError(err, "Server failed")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.LogError(err, "Forced shutdown")
	}
}

// runAbandonmentSweep periodically marks long-idle in-progress attempts
// as abandoned so they stop accepting writes.
func runAbandonmentSweep(ctx context.Context, attempts services.AttemptService, cfg *config.Config, logger utils.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := attempts.MarkAbandoned(ctx, cfg.SweepIdleAfter, cfg.SweepBatchSize)
			if err != nil {
				logger.LogError(err, "Abandonment sweep failed")
				continue
			}
			if swept > 0 {
				logger.Info("Marked idle attempts as abandoned", "count", swept)
			}
		}
	}
}
