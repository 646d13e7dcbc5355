package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/NaeeemJatt/FlashThreat/internal/adapter/cache"
	"github.com/NaeeemJatt/FlashThreat/internal/adapter/controller/http/handlers"
	"github.com/NaeeemJatt/FlashThreat/internal/adapter/controller/http/middleware"
	"github.com/NaeeemJatt/FlashThreat/internal/adapter/external/threatintel"
	"github.com/NaeeemJatt/FlashThreat/internal/adapter/repository/clickhouse"
	"github.com/NaeeemJatt/FlashThreat/internal/config"
	"github.com/NaeeemJatt/FlashThreat/internal/usecase/bulk"
	"github.com/NaeeemJatt/FlashThreat/internal/usecase/lookup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("starting FlashThreat API",
		"env", cfg.App.Env,
		"port", cfg.App.Port,
	)

	// Cache backend: Redis when configured, in-memory otherwise.
	var store cache.Store
	var memStore *cache.MemoryStore
	if cfg.Redis.Addr != "" {
		redisStore, err := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable, falling back to in-memory cache", "error", err)
		} else {
			store = redisStore
			logger.Info("using redis cache", "addr", cfg.Redis.Addr)
		}
	}
	if store == nil {
		memStore = cache.NewMemoryStore()
		store = memStore
	}
	defer store.Close()

	providers := buildProviders(cfg)
	for _, p := range providers {
		if !p.IsConfigured() {
			logger.Warn("provider has no API key and will settle as auth_error", "provider", p.Name())
		}
	}

	ttl := cache.TTLPolicy{
		IP:     cfg.Cache.TTLIP,
		Domain: cfg.Cache.TTLDomain,
		URL:    cfg.Cache.TTLURL,
		Hash:   cfg.Cache.TTLHash,
	}
	orch := lookup.NewOrchestrator(providers, store, ttl,
		cfg.Lookup.OverallTimeout, cfg.Lookup.ProviderTimeout, logger)

	// Lookup history is optional; the engine runs without it.
	var history *clickhouse.LookupsRepository
	var chConn *clickhouse.Connection
	if cfg.ClickHouse.Enabled {
		chConn, err = clickhouse.NewConnection(clickhouse.Config{
			Host:     cfg.ClickHouse.Host,
			Port:     cfg.ClickHouse.Port,
			Database: cfg.ClickHouse.Database,
			User:     cfg.ClickHouse.User,
			Password: cfg.ClickHouse.Password,
		}, logger)
		if err != nil {
			logger.Warn("clickhouse unavailable, lookup history disabled", "error", err)
		} else {
			history = clickhouse.NewLookupsRepository(chConn)
			defer chConn.Close()
		}
	}

	var recorder lookup.HistoryRecorder
	if history != nil {
		recorder = history
	}
	svc := lookup.NewService(orch, recorder, logger)
	runner := bulk.NewRunner(svc, cfg.Bulk.Workers, cfg.Bulk.RatePerSecond, logger)

	lookupHandler := handlers.NewLookupHandler(svc, logger)
	bulkHandler := handlers.NewBulkHandler(runner, cfg.Bulk.MaxItems, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httprate.LimitByIP(100, time.Minute))

	checkers := map[string]func(ctx context.Context) error{}
	if chConn != nil {
		checkers["clickhouse"] = chConn.Ping
	}
	r.Get("/health", handlers.HealthCheck(cfg, checkers))

	var statsSource handlers.StatsSource
	if memStore != nil {
		statsSource = memStore
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/ioc", func(r chi.Router) {
			r.Post("/check", lookupHandler.CheckIOC)
			r.Get("/stream", lookupHandler.StreamIOC)
			r.Post("/bulk", bulkHandler.Submit)
			r.Get("/bulk/{id}", bulkHandler.Progress)
			r.Get("/bulk/{id}/download", bulkHandler.Download)
			if history != nil {
				historyHandler := handlers.NewHistoryHandler(history, logger)
				r.Get("/history", historyHandler.History)
			}
		})
		r.Get("/providers", lookupHandler.Providers)
		r.Get("/cache/stats", handlers.CacheStats(statsSource))
	})

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: the SSE stream endpoint holds the
		// response open for the whole lookup.
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

func buildProviders(cfg *config.Config) []threatintel.Provider {
	timeout := cfg.Lookup.ProviderTimeout
	return []threatintel.Provider{
		threatintel.NewVirusTotalClient(threatintel.VirusTotalConfig{
			APIKey: cfg.Providers.VirusTotalKey, Timeout: timeout,
		}),
		threatintel.NewAbuseIPDBClient(threatintel.AbuseIPDBConfig{
			APIKey: cfg.Providers.AbuseIPDBKey, Timeout: timeout,
		}),
		threatintel.NewOTXClient(threatintel.OTXConfig{
			APIKey: cfg.Providers.OTXKey, Timeout: timeout,
		}),
		threatintel.NewURLhausClient(threatintel.URLhausConfig{
			APIKey: cfg.Providers.URLhausKey, Timeout: timeout,
		}),
		threatintel.NewThreatFoxClient(threatintel.ThreatFoxConfig{
			APIKey: cfg.Providers.ThreatFoxKey, Timeout: timeout,
		}),
	}
}
