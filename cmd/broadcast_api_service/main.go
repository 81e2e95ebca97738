package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mtechsms/golang_services/internal/broadcast_service/adapters/dispatcher"
	"github.com/mtechsms/golang_services/internal/broadcast_service/app"
	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
	broadcastPg "github.com/mtechsms/golang_services/internal/broadcast_service/repository/postgres"
	broadcastCache "github.com/mtechsms/golang_services/internal/broadcast_service/repository/redis"
	"github.com/mtechsms/golang_services/internal/platform/cache"
	"github.com/mtechsms/golang_services/internal/platform/config"
	"github.com/mtechsms/golang_services/internal/platform/database"
	"github.com/mtechsms/golang_services/internal/platform/logger"
	"github.com/mtechsms/golang_services/internal/platform/messagebroker"
	"github.com/mtechsms/golang_services/internal/public_api_service/middleware"
	httptransport "github.com/mtechsms/golang_services/internal/public_api_service/transport/http"
)

const serviceName = "broadcast_api_service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	appLogger.Info("Broadcast API service starting...", "port", cfg.BroadcastAPIServicePort)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewDBPool(ctx, cfg.PostgresDSN, database.PoolOptions{})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL database")

	var contacts domain.ContactDirectory = broadcastPg.NewPgContactDirectory(dbPool, appLogger)
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			appLogger.Warn("Redis unavailable, contact lookups will not be cached", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer redisClient.Close()
			ttl := time.Duration(cfg.ContactCacheTTLSeconds) * time.Second
			contacts = broadcastCache.NewCachedContactDirectory(redisClient, contacts, ttl, appLogger)
			appLogger.Info("Contact lookups cached in Redis", "addr", cfg.RedisAddr, "ttl", ttl)
		}
	}

	natsClient, err := messagebroker.NewNatsClient(cfg.NATSUrl, serviceName, appLogger, cfg.NATSUseJetStream)
	if err != nil {
		appLogger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	appLogger.Info("Connected to NATS", "url", cfg.NATSUrl, "jetstream", cfg.NATSUseJetStream)

	broadcastDispatcher := dispatcher.NewNatsDispatcher(natsClient, cfg.DispatchSubject, appLogger)
	broadcastStore := broadcastPg.NewPgBroadcastStatusStore(dbPool, appLogger)
	broadcastService := app.NewBroadcastAppService(contacts, broadcastDispatcher, broadcastStore, app.ServiceConfig{
		SenderID:           cfg.SenderID,
		DefaultMessageType: cfg.DefaultMessageType,
		SummarySampleSize:  cfg.SummarySampleSize,
	}, appLogger)

	outcomeConsumer := app.NewOutcomeConsumer(natsClient, broadcastStore, appLogger)

	validate := validator.New()
	broadcastHandler := httptransport.NewBroadcastHandler(broadcastService, validate, appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(httptransport.PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "Broadcast API service is healthy"})
	})

	r.Route("/api/v1", func(v1Router chi.Router) {
		v1Router.Use(middleware.RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, appLogger))
		v1Router.Use(middleware.AuthMiddleware([]byte(cfg.JWTAccessSecret), appLogger))
		broadcastHandler.RegisterRoutes(v1Router)
	})

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.BroadcastAPIServicePort), Handler: r}
	metricsServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.MetricsPort), Handler: metricsMux}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info(fmt.Sprintf("Broadcast API server listening on port %d", cfg.BroadcastAPIServicePort))
		return serve(httpServer)
	})
	g.Go(func() error {
		appLogger.Info(fmt.Sprintf("Metrics server listening on port %d", cfg.MetricsPort))
		return serve(metricsServer)
	})
	g.Go(func() error {
		return outcomeConsumer.StartConsuming(gCtx, cfg.OutcomeSubject, cfg.OutcomeQueueGroup)
	})
	g.Go(func() error {
		<-gCtx.Done()
		appLogger.Info("Shutdown signal received, shutting down servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return errors.Join(httpServer.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Broadcast API service stopped with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Broadcast API service shut down.")
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving %s: %w", srv.Addr, err)
	}
	return nil
}
