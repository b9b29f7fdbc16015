// Command ingestion starts the document ingestion HTTP service.
//
// Documents posted to /api/v1/documents (or /api/v1/documents/batch) are
// checked against the index schema and published to the ingest topic for
// the indexer. When PostgreSQL is configured each document is recorded as
// PENDING before it is published.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	s, err := schema.FromConfig(cfg.Schema)
	if err != nil {
		slog.Error("invalid schema", "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		shutdownMetrics, err := metrics.StartServer(cfg.Metrics.Port, nil)
		if err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
		defer shutdownMetrics(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker()
	var store publisher.StatusStore
	if cfg.Postgres.Host != "" {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare postgres schema", "error", err)
			os.Exit(1)
		}
		checker.Register("postgres", db.DB.PingContext)
		store = db
		slog.Info("connected to postgres")
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.DocumentIngest)

	pub := publisher.New(store, producer, resilience.RetryConfig{}, m)
	h := handler.New(s, pub)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	middlewares := []func(http.Handler) http.Handler{middleware.Recover, middleware.RequestID}
	if m != nil {
		middlewares = append(middlewares, middleware.Metrics(m,
			"/api/v1/documents", "/api/v1/documents/batch",
			"/health/live", "/health/ready",
		))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		middlewares = append(middlewares, middleware.CORS(middleware.NewCORSConfig(cfg.Server.CORSOrigins...)))
	}
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewClientLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, 10*time.Minute)
		go limiter.Run(ctx, time.Minute)
		middlewares = append(middlewares, middleware.RateLimit(limiter))
	}
	middlewares = append(middlewares, middleware.Timeout(cfg.Server.WriteTimeout))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, middlewares...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
