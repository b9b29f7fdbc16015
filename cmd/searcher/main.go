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

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/redis"
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
	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Indexer.DataDir)

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

	// the searcher only reads segments; it never indexes
	engine, err := indexer.NewEngine(cfg.Indexer, s, m)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	defer engine.Close()
	slog.Info("index opened", "segments", len(engine.Segments()))

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		slog.Info("search cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// every searcher instance must see every announcement
	group := fmt.Sprintf("%s-searcher-%s", cfg.Kafka.ConsumerGroup, uuid.NewString())
	announcements := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, group,
		func(ctx context.Context, key, value []byte) error {
			event, err := kafka.DecodeJSON[kafka.IndexCompleteEvent](value)
			if err != nil {
				slog.Error("failed to decode index-complete event", "error", err)
				return nil
			}
			added, err := engine.ReloadSegments()
			if err != nil {
				return err
			}
			slog.Info("index updated", "segment", event.Segment, "docs", event.Docs, "segments_added", added)
			if added > 0 && queryCache != nil {
				if err := queryCache.Invalidate(ctx); err != nil {
					slog.Error("cache invalidation failed", "error", err)
				}
			}
			return nil
		})
	go func() {
		if err := announcements.Start(ctx); err != nil {
			slog.Error("index-complete consumer error", "error", err)
		}
	}()

	checker := health.NewChecker()
	if redisClient != nil {
		checker.RegisterOptional("redis", redisClient.Ping)
	}

	svc := executor.NewService(engine, cfg.Search, m)
	h := handler.New(svc, queryCache, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	middlewares := []func(http.Handler) http.Handler{middleware.Recover, middleware.RequestID}
	if m != nil {
		middlewares = append(middlewares, middleware.Metrics(m,
			"/api/v1/search", "/api/v1/cache/stats", "/api/v1/cache/invalidate",
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

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
