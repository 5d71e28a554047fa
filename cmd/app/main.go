// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"svmedia/internal/config"
	"svmedia/internal/infra/api"
	pg "svmedia/internal/infra/db/postgres"
	"svmedia/internal/infra/i18n"
	"svmedia/internal/infra/logging"
	"svmedia/internal/infra/metrics"
	red "svmedia/internal/infra/redis"
	"svmedia/internal/infra/sched"
	"svmedia/internal/infra/security"
	s3store "svmedia/internal/infra/storage/s3"
	"svmedia/internal/usecase"

	"golang.org/x/sync/errgroup"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted codes)")
	flag.Parse()

	if err := run(*cfgPath, *devMode); err != nil {
		fmt.Fprintf(os.Stderr, "svmedia: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string, devMode bool) error {
	cfg, err := config.LoadConfig(cfgPath, devMode)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	// ---- Object store ----
	store, err := s3store.New(ctx, cfg.S3, logger)
	if err != nil {
		return fmt.Errorf("s3: %w", err)
	}

	// ---- Repositories ----
	codeRepo := pg.NewAccessCodeRepo(pool)
	userRepo := pg.NewUserRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Use cases ----
	tokens := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	gen := usecase.NewCodeGenerator(cfg.Codes, nil)
	sheet, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Codes.PrintLocale)
	if err != nil {
		return fmt.Errorf("codes.print_locale: %w", err)
	}
	codeUC := usecase.NewCodeUseCase(codeRepo, txm, gen, sheet, cfg.Codes, logger, cfg.Runtime.Dev)
	archiveUC := usecase.NewArchiveUseCase(store, cfg.Archive, logger)
	authUC := usecase.NewAuthUseCase(userRepo, txm, tokens, logger)

	opts := []api.Option{
		api.WithRequestTimeout(cfg.HTTP.RequestTimeout),
		api.WithHealthCheck("postgres", func(ctx context.Context) error { return pool.Ping(ctx) }),
	}

	// ---- Redis (optional) ----
	if cfg.RateLimit.RedeemPerWindow > 0 {
		redisClient, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		limiter := red.NewRateLimiter(redisClient, "redeem", cfg.RateLimit.RedeemPerWindow, cfg.RateLimit.Window)
		opts = append(opts,
			api.WithLimiter(limiter, red.RedeemAttemptKey),
			api.WithHealthCheck("redis", redisClient.Ping),
		)
	}

	srv := api.NewServer(codeUC, archiveUC, authUC, logger, opts...)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("archive_mode", archiveUC.Mode()).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := sched.NewWorker("pool-stats", 15*time.Second, sched.PoolStatsTask(pool), logger).Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// ---- Graceful shutdown ----
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown requested")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})

	return g.Wait()
}
