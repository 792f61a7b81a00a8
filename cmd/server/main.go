// Command server runs the gamification backend: the badge award engine,
// its read API, and the maintenance scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trailpost/trailpost-backend/internal/api/badges"
	"github.com/trailpost/trailpost-backend/internal/cache"
	"github.com/trailpost/trailpost-backend/internal/config"
	"github.com/trailpost/trailpost-backend/internal/repository"
	"github.com/trailpost/trailpost-backend/internal/service/catalog"
	"github.com/trailpost/trailpost-backend/internal/service/engine"
	"github.com/trailpost/trailpost-backend/internal/service/progress"
	"github.com/trailpost/trailpost-backend/internal/service/scheduler"
	"github.com/trailpost/trailpost-backend/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisCache.Close()

	badgeRepo := repository.NewBadgeRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	userRepo := repository.NewUserRepository(db)

	catalogService := catalog.NewService(badgeRepo, redisCache, cfg.Engine.CacheTTL(), log)
	engineService := engine.NewService(db, catalogService, progressRepo, ledgerRepo, userRepo, engine.Options{
		MaxRetries:   cfg.Engine.MaxRetries,
		RetryBackoff: cfg.Engine.RetryBackoff(),
	}, log)

	dispatcher := engine.NewDispatcher(engineService, cfg.Engine.QueueSize, cfg.Engine.Workers, log)
	dispatcher.Start(context.Background())

	progressService := progress.NewService(badgeRepo, progressRepo, ledgerRepo, log)

	schedulerService := scheduler.NewService(cfg.Scheduler, badgeRepo, progressRepo, catalogService, log)
	if err := schedulerService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	handler := badges.NewHandler(progressService, dispatcher, log)
	handler.RegisterRoutes(router.Group("/api/v1"))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	schedulerService.Stop()
	dispatcher.Stop()
}
