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

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Proton-105/storefront-bot/internal/bot"
	"github.com/Proton-105/storefront-bot/internal/bot/handlers"
	"github.com/Proton-105/storefront-bot/internal/commerce"
	apperrors "github.com/Proton-105/storefront-bot/internal/errors"
	"github.com/Proton-105/storefront-bot/internal/health"
	"github.com/Proton-105/storefront-bot/internal/lifecycle"
	"github.com/Proton-105/storefront-bot/internal/middleware"
	"github.com/Proton-105/storefront-bot/internal/ratelimit"
	"github.com/Proton-105/storefront-bot/internal/state"
	"github.com/Proton-105/storefront-bot/pkg/config"
	"github.com/Proton-105/storefront-bot/pkg/graceful"
	"github.com/Proton-105/storefront-bot/pkg/logger"
	"github.com/Proton-105/storefront-bot/pkg/metrics"
	appredis "github.com/Proton-105/storefront-bot/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	log, level := logger.New(*cfg)
	slog.SetDefault(log)
	config.Watch(v, log, func(next *config.Config) {
		level.Set(logger.ParseLevel(next.Logger.Level))
	})

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.AppEnv}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	log.Info("starting storefront bot", slog.String("mode", cfg.Bot.Mode), slog.String("ops_addr", cfg.Server.Port))

	rdb, err := appredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	redisClient := appredis.NewMetricsClient(rdb)

	api := commerce.NewClient(cfg.Commerce, redisClient, log)

	machine := state.NewMachine(state.NewRedisStorage(redisClient, log), log, state.Options{
		LockTTL:  cfg.Session.LockTTL,
		LockWait: cfg.Session.LockWait,
	})
	dispatcher := bot.NewDispatcher(machine, handlers.NewSet(api, log), log)

	var rateLimitMw *middleware.RateLimitMiddleware
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewRedisLimiter(redisClient, log)
		rateLimitMw = middleware.NewRateLimitMiddleware(limiter, ratelimit.NewRules(cfg.RateLimit), log)
	}

	b, err := bot.New(cfg.Bot, log, dispatcher, apperrors.NewReporter(log, cfg.Sentry.Enabled), rateLimitMw)
	if err != nil {
		_ = redisClient.Close()
		return err
	}

	checker := health.NewChecker(log)
	checker.AddCheck("redis", health.NewRedisChecker(redisClient))
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	checker.AddCheck("commerce", health.NewCommerceChecker(api))
	probes := lifecycle.NewProbes(checker, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	probes.Register(mux)
	opsServer := graceful.NewServer(log, &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           logger.Middleware(middleware.HTTPLogging(log)(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}, cfg.Server.ShutdownTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return opsServer.ListenAndServe(gctx)
	})
	g.Go(func() error {
		metrics.NewStateCollector(machine, log).Run(gctx)
		return nil
	})
	g.Go(func() error {
		b.Start(gctx)
		return nil
	})

	<-gctx.Done()
	probes.Drain()

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register("redis", func(context.Context) error {
		return redisClient.Close()
	})
	shutdown.Register("workers", func(context.Context) error {
		return g.Wait()
	})
	shutdown.Register("telegram", func(context.Context) error {
		b.Stop()
		return nil
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	err = shutdown.Execute(shutdownCtx)
	log.Info("storefront bot stopped")
	return err
}
