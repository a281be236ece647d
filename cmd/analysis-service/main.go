// Package main is the entry point for the Analysis Service
// Analysis Service ingests login datasets, scores them for anomalies and
// serves risk reports
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skytrace/skytrace/internal/analysis"
	"github.com/skytrace/skytrace/internal/common/config"
	"github.com/skytrace/skytrace/internal/common/logger"
	"github.com/skytrace/skytrace/internal/common/metrics"
	"github.com/skytrace/skytrace/internal/geo"
)

var (
	Version    = "dev"
	BuildTime  = "unknown"
	CommitHash = "unknown"
)

func main() {
	log := logger.New()
	defer log.Sync()

	log.Info("Starting Analysis Service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("commit", CommitHash),
	)

	cfg, err := config.Load("analysis-service")
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	resolver, cleanup, err := buildResolver(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize geolocation", zap.Error(err))
	}
	defer cleanup()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinMiddleware(log))
	router.Use(metrics.GinMiddleware(cfg.ServiceName))

	service := analysis.NewService(resolver, log)
	handler := analysis.NewHandler(service, analysis.Options{
		Contamination:     cfg.Contamination,
		EnableGeolocation: cfg.EnableGeolocation,
		AlertThreshold:    cfg.RiskAlertThreshold,
	}, log)
	handler.RegisterRoutes(router)

	router.GET("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// buildResolver assembles the geolocation stack from config: a MaxMind
// database when a path is set, the HTTP lookup otherwise, backed by the
// configured cache. Returns nil when geolocation is disabled.
func buildResolver(cfg *config.Config, log *zap.Logger) (*geo.Resolver, func(), error) {
	cleanup := func() {}
	if !cfg.EnableGeolocation {
		return nil, cleanup, nil
	}

	var lookup geo.Lookup
	if cfg.GeoMMDBPath != "" {
		mmdb, err := geo.NewMaxMindLookup(cfg.GeoMMDBPath)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { mmdb.Close() }
		lookup = mmdb
		log.Info("Using MaxMind geolocation database", zap.String("path", cfg.GeoMMDBPath))
	} else {
		lookup = geo.NewHTTPLookup(cfg.GeoServiceURL)
		log.Info("Using HTTP geolocation service", zap.String("url", cfg.GeoServiceURL))
	}

	var cache geo.Cache
	if cfg.GeoCacheBackend == "redis" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, cleanup, err
		}
		cache = geo.NewRedisCache(redis.NewClient(redisOpts))
		log.Info("Using Redis geolocation cache")
	} else {
		cache = geo.NewMemoryCache()
	}

	return geo.NewResolver(lookup, cache, log), cleanup, nil
}
