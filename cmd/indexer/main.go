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

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/metrics"
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
	slog.Info("starting indexer service", "data_dir", cfg.Indexer.DataDir)

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
	engine, err := indexer.NewEngine(cfg.Indexer, s, m)
	if err != nil {
		slog.Error("failed to create index engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store consumer.StatusStore
	checker := health.NewChecker()
	if cfg.Postgres.Host != "" {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare postgres schema", "error", err)
			os.Exit(1)
		}
		store = pg
		checker.RegisterOptional("postgres", pg.DB.PingContext)
		slog.Info("document status tracking enabled", "host", cfg.Postgres.Host)
	}

	announcer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer announcer.Close()

	h := consumer.NewHandler(engine, store)
	engine.OnFlush(h.FlushHook(context.WithoutCancel(ctx), announcer))
	engine.StartFlushLoop(ctx)

	kafkaConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.DocumentIngest,
		cfg.Kafka.ConsumerGroup,
		h.HandleMessage,
	)
	kafkaConsumer.SetRetry(resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 200 * time.Millisecond})
	indexConsumer := consumer.New(kafkaConsumer)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"group", cfg.Kafka.ConsumerGroup,
		"announce_topic", cfg.Kafka.Topics.IndexComplete,
	)
	if err := indexConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}

	slog.Info("flushing pending documents before shutdown", "pending", engine.PendingDocs())
	if err := engine.Flush(); err != nil {
		slog.Error("final flush failed", "error", err)
	}
	slog.Info("indexer service stopped")
}
