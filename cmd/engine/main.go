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

	"github.com/JulianoL13/proxy-rotator/internal/common/logs"
	"github.com/JulianoL13/proxy-rotator/internal/common/logs/slog"
	queueredis "github.com/JulianoL13/proxy-rotator/internal/common/queue/redis"
	"github.com/JulianoL13/proxy-rotator/internal/common/workerpool"
	"github.com/JulianoL13/proxy-rotator/internal/proxy"
	"github.com/JulianoL13/proxy-rotator/internal/proxy/adapters"
	proxyhttp "github.com/JulianoL13/proxy-rotator/internal/proxy/http"
	"github.com/JulianoL13/proxy-rotator/internal/proxy/memory"
	proxypg "github.com/JulianoL13/proxy-rotator/internal/proxy/postgres"
	proxyredis "github.com/JulianoL13/proxy-rotator/internal/proxy/redis"
	"github.com/JulianoL13/proxy-rotator/internal/scraper"
	"github.com/JulianoL13/proxy-rotator/internal/scraper/github"
	httpclient "github.com/JulianoL13/proxy-rotator/internal/scraper/http"
	"github.com/JulianoL13/proxy-rotator/internal/verifier"
	httpverifier "github.com/JulianoL13/proxy-rotator/internal/verifier/http"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 30 * time.Second
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("engine stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg Config) logs.Logger {
	level := slog.ParseLevel(cfg.LogLevel)
	if cfg.LogFormat == "text" {
		return slog.New(level)
	}
	return slog.NewJSON(level)
}

func run(cfg Config, logger logs.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting proxy rotator",
		"store", cfg.StoreBackend,
		"check_interval", cfg.CheckInterval,
		"max_concurrent_tests", cfg.MaxConcurrentTests,
	)

	var redisClient *redis.Client
	if cfg.usesRedis() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to redis", "addr", cfg.RedisAddr)
	}

	store, closeStore, err := openStore(cfg, redisClient)
	if err != nil {
		return err
	}
	defer closeStore()

	workers, err := workerpool.New(cfg.MaxConcurrentTests)
	if err != nil {
		return fmt.Errorf("worker pool: %w", err)
	}
	defer workers.Stop()

	checker := httpverifier.NewChecker(cfg.TestURLs, cfg.ProbeTimeout, logger)
	if cfg.AnonymityCheck {
		checker.WithAnonymityCheck(cfg.EchoURL)
	}
	validate := verifier.NewValidateBatchUseCase(checker, workers, logger)

	fetchers := scraper.NewFormatRouter().
		Register(httpclient.New(), scraper.FormatText, scraper.FormatHTML, scraper.FormatJSON).
		Register(github.New(github.DefaultBaseURL, cfg.GitHubToken, logger).
			WithLimits(cfg.GitHubMaxDepth, cfg.GitHubMaxRepos), scraper.FormatGitHub)
	scrape := scraper.NewScrapeProxiesUseCase(fetchers, scraper.PublicSources(), logger)

	pool := proxy.NewPool()
	rotator := proxy.NewRotator(pool, cfg.FreshnessThreshold, logger)

	loop := proxy.NewRefreshPoolUseCase(
		adapters.NewScraperAdapter(scrape),
		adapters.NewVerifierAdapter(validate),
		store,
		pool,
		rotator,
		cfg.refreshConfig(),
		logger,
	)
	if cfg.EventsEnabled {
		publisher := queueredis.NewStreamsClient(redisClient)
		defer publisher.Close()
		loop.WithNotifier(adapters.NewEventNotifier(publisher, cfg.EventsTopic))
	}

	manager := proxy.NewManager(loop, rotator, pool, store, logger)
	manager.Start(ctx)

	handler := proxyhttp.NewHandler(manager, logger)
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      proxyhttp.NewRouter(handler, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-serverErr:
		stop()
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	select {
	case <-manager.Done():
	case <-time.After(drainTimeout):
		logger.Warn("refresh loop did not stop in time")
	}

	logger.Info("stopped")
	return nil
}

func openStore(cfg Config, redisClient *redis.Client) (proxy.Store, func(), error) {
	switch cfg.StoreBackend {
	case backendRedis:
		return proxyredis.NewRepository(redisClient, cfg.RedisKeyPrefix), func() {}, nil
	case backendPostgres:
		db, err := proxypg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		repo := proxypg.NewRepository(db)
		if err := repo.Migrate(); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repo, func() { _ = db.Close() }, nil
	case backendMemory:
		return memory.NewRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
