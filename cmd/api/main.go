package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"event-search/internal/cache"
	"event-search/internal/config"
	httphandler "event-search/internal/http"
	"event-search/internal/middleware"
	"event-search/internal/services/events"
	"event-search/internal/services/graph"
)

func main() {
	port := flag.String("port", "", "Port to run the server on (overrides PORT)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	setupLogging(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graph client behind a circuit breaker
	graphClient := graph.NewClient(cfg.Graph.BaseURL, cfg.Graph.RequestTimeout)
	graphAPI := graph.NewBreakerClient(graphClient, graph.BreakerSettings{
		Name:         "facebook-graph",
		MaxRequests:  uint32(cfg.Breaker.MaxRequests),
		Interval:     cfg.Breaker.Interval,
		Timeout:      cfg.Breaker.Timeout,
		MinRequests:  uint32(cfg.Breaker.MinRequests),
		FailureRatio: cfg.Breaker.FailureRatio,
	})

	eventService := events.NewEventService(graphAPI, events.Options{
		SearchLimit:      cfg.Graph.SearchLimit,
		BatchSize:        cfg.Graph.BatchSize,
		FetchConcurrency: cfg.Graph.FetchConcurrency,
		RequestTimeout:   cfg.Graph.RequestTimeout,
	})

	var limiter middleware.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
		limiter = middleware.NewRedisLimiter(redisClient, cfg.RateLimit.RequestsPerMinute)
	default:
		limiter = middleware.NewMemoryLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize)
	}

	router := httphandler.NewRouter(httphandler.RouterOptions{
		RequestTimeout: cfg.Server.RequestTimeout,
		Limiter:        limiter,
		LimiterBackend: cfg.RateLimit.Backend,
	})
	router.RegisterEventRoutes(httphandler.NewEventHandler(eventService))
	router.RegisterHealthRoutes()
	router.RegisterMetricsRoutes()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("graph_base_url", cfg.Graph.BaseURL).
			Str("rate_limit_backend", cfg.RateLimit.Backend).
			Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
