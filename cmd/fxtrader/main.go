package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/danyeu/fx/internal/api"
	"github.com/danyeu/fx/internal/cli"
	"github.com/danyeu/fx/internal/config"
	"github.com/danyeu/fx/internal/logger"
	"github.com/danyeu/fx/internal/portfolio"
	"github.com/danyeu/fx/internal/rates"
	"github.com/danyeu/fx/internal/trader"
)

func main() {
	serve := flag.Bool("serve", false, "serve the HTTP API instead of the interactive menu")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.App.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if !*serve {
		// Keep the menu readable; only errors reach the terminal.
		logger.Set(logger.Get().WithOptions(zap.IncreaseLevel(zapcore.ErrorLevel)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *serve); err != nil {
		logger.Error("fxtrader stopped", zap.Error(err))
		_ = logger.Sync()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, serve bool) error {
	checks := make(map[string]api.HealthCheck)

	store, closeStore, err := openStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	supplier, closeSupplier, err := openSupplier(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeSupplier()

	service := trader.NewService(store, supplier, trader.Config{
		Base:     cfg.App.BaseCurrency,
		FX:       cfg.App.FXCurrencies,
		Start:    cfg.App.StartBalance,
		QuoteTTL: cfg.App.QuoteTTL,
	})

	if !serve {
		err := cli.NewMenu(service, os.Stdin, os.Stdout).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	if _, err := service.Init(ctx); err != nil {
		return err
	}
	return serveHTTP(ctx, cfg, service, checks)
}

func openStore(ctx context.Context, cfg *config.Config, checks map[string]api.HealthCheck) (portfolio.Store, func(), error) {
	switch cfg.Store.Kind {
	case "memory":
		logger.Info("Using in-memory portfolio store")
		return portfolio.NewMemory(), func() {}, nil
	case "csv":
		store, err := portfolio.NewCSV(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open csv store: %w", err)
		}
		logger.Info("Using csv portfolio store", zap.String("dir", cfg.Store.DataDir))
		return store, func() {}, nil
	case "postgres":
		pool, err := portfolio.NewPostgresPool(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := portfolio.NewPostgres(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		checks["postgres"] = pool.Ping
		logger.Info("Connected to PostgreSQL database", zap.String("host", cfg.Database.Host))
		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
}

func openSupplier(ctx context.Context, cfg *config.Config, checks map[string]api.HealthCheck) (rates.Supplier, func(), error) {
	var supplier rates.Supplier
	switch cfg.Rates.Source {
	case "static":
		static, err := rates.NewStatic(cfg.Rates.StaticRates, cfg.App.FXCurrencies)
		if err != nil {
			return nil, nil, err
		}
		supplier = static
	case "beacon":
		supplier = rates.NewBeaconClient(
			cfg.Rates.URL,
			cfg.Rates.APIKey,
			cfg.Rates.Timeout,
			cfg.App.BaseCurrency,
			cfg.App.FXCurrencies,
		)
	default:
		return nil, nil, fmt.Errorf("unknown rates source %q", cfg.Rates.Source)
	}

	supplier = rates.NewBreaker(supplier, rates.BreakerSettings{
		Name:         "rates-" + cfg.Rates.Source,
		MaxFailures:  cfg.Rates.BreakerMaxFailures,
		OpenDuration: cfg.Rates.BreakerOpenDuration,
	})

	if !cfg.Redis.Enabled || cfg.Rates.CacheTTL == 0 {
		return supplier, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	logger.Info("Connected to Redis", zap.String("addr", cfg.Redis.RedisAddr()))

	cache := rates.NewCache(supplier, client, cfg.Rates.CacheTTL, rates.DefaultCachePrefix)
	return cache, func() { _ = client.Close() }, nil
}

func serveHTTP(ctx context.Context, cfg *config.Config, service *trader.Service, checks map[string]api.HealthCheck) error {
	router := api.NewRouter(service, api.RouterConfig{
		CORSOrigins: cfg.Server.CORSOrigins,
		Checks:      checks,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fxtrader API starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
