package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/Bvvvp009/farcasterpaywall/api/controllers"
	"github.com/Bvvvp009/farcasterpaywall/api/routes"
	"github.com/Bvvvp009/farcasterpaywall/internal/access"
	"github.com/Bvvvp009/farcasterpaywall/internal/metadata"
	"github.com/Bvvvp009/farcasterpaywall/internal/payments"
	"github.com/Bvvvp009/farcasterpaywall/internal/subscriptions"
	"github.com/Bvvvp009/farcasterpaywall/pkg/chain"
	"github.com/Bvvvp009/farcasterpaywall/pkg/config"
	"github.com/Bvvvp009/farcasterpaywall/pkg/db"
	"github.com/Bvvvp009/farcasterpaywall/pkg/kv"
	"github.com/Bvvvp009/farcasterpaywall/pkg/logger"
	"github.com/Bvvvp009/farcasterpaywall/pkg/metrics"
	"github.com/Bvvvp009/farcasterpaywall/pkg/migrate"
	"github.com/Bvvvp009/farcasterpaywall/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

type storeHandle struct {
	kv          kv.Store
	pinger      controllers.Pinger
	idempotency redis.IdempotencyStore
	close       func() error
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(runCtx, cfg, logg)
	if err != nil {
		logg.Error(runCtx, "failed to bootstrap store", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.close(); err != nil {
			logg.Error(context.Background(), "error closing store", err)
		}
	}()

	chainClient, err := chain.New(runCtx, cfg.Chain, logg)
	if err != nil {
		logg.Error(runCtx, "failed to bootstrap chain client", err)
		os.Exit(1)
	}
	defer chainClient.Close()

	paywallMetrics := metrics.NewPaywallMetrics(prometheus.DefaultRegisterer)

	verifier, err := payments.NewVerifier(payments.VerifierParams{
		Reader:        chainClient,
		TokenContract: cfg.Chain.TokenAddress(),
		TokenDecimals: int(cfg.Chain.TokenDecimals),
		Metrics:       paywallMetrics,
		Logger:        logg,
	})
	requireService(runCtx, logg, "payment verifier", err)

	claims := payments.NewClaimStore(store.kv)

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(store.kv),
		Verifier: verifier,
		Content:  chainClient,
		Claims:   claims,
		Logger:   logg,
	})
	requireService(runCtx, logg, "payment service", err)

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:     subscriptions.NewRepository(store.kv),
		Verifier: verifier,
		Claims:   claims,
		Period:   cfg.Subscription.Period,
		Logger:   logg,
	})
	requireService(runCtx, logg, "subscription service", err)

	accessService, err := access.NewService(access.ServiceParams{
		Content:       chainClient,
		Payments:      paymentService,
		Subscriptions: subscriptionService,
		TokenDecimals: int(cfg.Chain.TokenDecimals),
		Metrics:       paywallMetrics,
		Logger:        logg,
	})
	requireService(runCtx, logg, "access service", err)

	metadataService, err := metadata.NewService(
		cfg.Gateway.Endpoints(),
		metadata.WithAttemptTimeout(cfg.Gateway.Timeout),
		metadata.WithContentReader(chainClient),
		metadata.WithMetrics(paywallMetrics),
		metadata.WithLogger(logg),
	)
	requireService(runCtx, logg, "metadata service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"store_driver": cfg.Store.Normalized(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, store.pinger, chainClient, store.idempotency, prometheus.DefaultGatherer, routes.Services{
			Payments:      paymentService,
			Access:        accessService,
			Metadata:      metadataService,
			Subscriptions: subscriptionService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

// openStore connects the configured durable store. Idempotency records always
// live in redis; with a SQL store they are enabled only when redis is also
// configured.
func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*storeHandle, error) {
	if !cfg.Store.UsesSQL() {
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		return &storeHandle{kv: client.KV(), pinger: client, idempotency: client, close: client.Close}, nil
	}

	client, err := db.New(ctx, cfg.DB, cfg.Store.Normalized(), logg)
	if err != nil {
		return nil, err
	}
	if err := migrate.MaybeAutoRun(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	handle := &storeHandle{kv: client.KV(), pinger: client, close: client.Close}
	if cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		logg.Warn(ctx, "redis not configured, idempotency keys are ignored")
		return handle, nil
	}
	cache, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	handle.idempotency = cache
	handle.close = func() error {
		return multierr.Combine(cache.Close(), client.Close())
	}
	return handle, nil
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to create "+name, err)
	os.Exit(1)
}
