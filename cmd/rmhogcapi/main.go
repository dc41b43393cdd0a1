package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rob634/rmhogcapi/internal/config"
	"github.com/rob634/rmhogcapi/internal/db/postgres"
	logpkg "github.com/rob634/rmhogcapi/internal/logger"
	"github.com/rob634/rmhogcapi/internal/metrics"
	catalogrepo "github.com/rob634/rmhogcapi/internal/repository/catalog"
	featuresrepo "github.com/rob634/rmhogcapi/internal/repository/features"
	chiTransport "github.com/rob634/rmhogcapi/internal/transport/chi"
	cataloguc "github.com/rob634/rmhogcapi/internal/usecase/catalog"
	featuresuc "github.com/rob634/rmhogcapi/internal/usecase/features"
	healthuc "github.com/rob634/rmhogcapi/internal/usecase/health"
	"github.com/rob634/rmhogcapi/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_host", cfg.Database.Host),
		zap.String("db_name", cfg.Database.Database),
	)

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, poolConfig(cfg))
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Register query metrics explicitly (no init())
	metrics.RegisterQueryMetrics()

	queryTimeout := time.Duration(cfg.Query.TimeoutSec) * time.Second

	// Create repositories
	featRepo := featuresrepo.New(store, cfg.Features.Schema, cfg.Features.GeometryColumn, queryTimeout, logger)
	catRepo := catalogrepo.New(store, cfg.Catalog.Schema, queryTimeout, logger)

	// Create use case services
	featSvc := featuresuc.New(featRepo, cfg.Features.Title, cfg.Features.Description)
	catSvc := cataloguc.New(catRepo, cfg.Catalog.ID, cfg.Catalog.Title, cfg.Catalog.Description)
	healthSvc := healthuc.New(store)

	// Create chi server
	server := chiTransport.NewServer(featSvc, catSvc, healthSvc, chiTransport.Limits{
		DefaultLimit:     cfg.Query.DefaultLimit,
		MaxLimit:         cfg.Query.MaxLimit,
		DefaultPrecision: cfg.Query.DefaultPrecision,
	}, cfg.Query.BaseURL, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// poolConfig maps database settings onto the pgx pool configuration. The
// pool caps connections with an int32, so oversized values are clamped.
func poolConfig(cfg config.Config) postgres.Config {
	maxConns := cfg.Database.MaxConns
	if maxConns > math.MaxInt32 {
		maxConns = math.MaxInt32
	}
	return postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: int32(maxConns),
	}
}
