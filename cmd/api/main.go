package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carpoolapp/backend/internal/adapters/cache"
	"github.com/carpoolapp/backend/internal/adapters/providers/geocoding"
	"github.com/carpoolapp/backend/internal/api/handlers"
	"github.com/carpoolapp/backend/internal/api/routes"
	"github.com/carpoolapp/backend/internal/application/services"
	"github.com/carpoolapp/backend/internal/infrastructure/clients/redis"
	"github.com/carpoolapp/backend/internal/infrastructure/observability"
	"github.com/carpoolapp/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	provider, err := geocoding.NewProvider(&cfg.Geocoding)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create geocoding provider")
	}

	searchService, err := services.NewLocationSearchService(provider, services.SearchOptionsFromConfig(&cfg.Geocoding))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create location search service")
	}
	searchService.SetMetrics(metrics)

	// Redis is an optional second cache tier shared by all replicas
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running with the in-process cache only")
		} else {
			defer redisClient.Close()
			searchService.SetSharedCache(cache.NewRedisAdapter(redisClient))
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("shared suggestion cache enabled")
		}
	}

	locationHandler := handlers.NewLocationHandler(searchService)
	router := routes.NewRouter(locationHandler, cfg.Server.AllowedOrigins, metrics)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", serverAddr).
			Str("provider", cfg.Geocoding.Provider).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}
