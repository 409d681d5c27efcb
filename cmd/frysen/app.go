package main

import (
	"context"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/thejonthinator/frysen/internal/engine"
	"github.com/thejonthinator/frysen/internal/localstore"
	"github.com/thejonthinator/frysen/internal/remote"
	"github.com/thejonthinator/frysen/internal/updates"
	"github.com/thejonthinator/frysen/pkg/config"
	"github.com/thejonthinator/frysen/pkg/db"
	"github.com/thejonthinator/frysen/pkg/logger"
	"github.com/thejonthinator/frysen/pkg/metrics"
	"github.com/thejonthinator/frysen/pkg/migrate"
	"github.com/thejonthinator/frysen/pkg/redis"
)

// app holds everything a command needs, already initialized.
type app struct {
	cfg      *config.Config
	logg     *logger.Logger
	engine   *engine.Engine
	registry *prometheus.Registry
	cronMet  *metrics.CronJobMetrics
	db       *db.Client
	redis    *redis.Client
	store    localstore.Store
	closers  []func() error
}

// bootstrap loads config, opens the local store and, when configured, the
// family database and redis channel, then initializes the engine.
func bootstrap(ctx context.Context, service string, logOut io.Writer) (*app, error) {
	cfg, logg, err := loadConfig(ctx, service, logOut)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logg: logg, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.cronMet = metrics.NewCronJobMetrics(a.registry)

	store, closeStore, err := localstore.Open(ctx, cfg.Storage, logg)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	gateway, err := a.openGateway(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	var checker engine.UpdateChecker
	if cfg.Updates.Enabled {
		c, err := updates.NewChecker(updates.Params{
			FeedURL:        cfg.Updates.FeedURL,
			CurrentVersion: cfg.Updates.CurrentVersion,
			Throttle:       cfg.Updates.Throttle,
			Logger:         logg,
		})
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("update checker: %w", err)
		}
		checker = c
	}

	e, err := engine.New(engine.Params{
		Store:        store,
		Gateway:      gateway,
		Updates:      checker,
		Logger:       logg,
		Metrics:      metrics.NewSyncMetrics(a.registry),
		Debounce:     cfg.Sync.Debounce,
		WriteTimeout: cfg.Sync.WriteTimeout,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("build engine: %w", err)
	}
	a.engine = e
	if err := e.Initialize(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("initialize engine: %w", err)
	}
	return a, nil
}

// loadConfig reads .env and the environment and builds the configured logger.
func loadConfig(ctx context.Context, service string, logOut io.Writer) (*config.Config, *logger.Logger, error) {
	logg := logger.New(logger.Options{ServiceName: service, Output: logOut})
	if err := godotenv.Load(); err != nil {
		logg.Debug(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      logOut,
		FilePath:    cfg.App.LogFile,
	})
	return cfg, logg, nil
}

// openGateway returns nil when no family database is configured; the engine
// then runs local-only.
func (a *app) openGateway(ctx context.Context) (remote.Gateway, error) {
	if !a.cfg.DB.Enabled() {
		a.logg.Info(ctx, "family sync disabled: no database configured")
		return nil, nil
	}

	dbClient, err := db.New(ctx, a.cfg.DB, a.logg)
	if err != nil {
		return nil, fmt.Errorf("connect family database: %w", err)
	}
	a.db = dbClient
	a.closers = append(a.closers, dbClient.Close)

	if err := migrate.MaybeAutoRun(ctx, a.cfg, a.logg, dbClient); err != nil {
		return nil, fmt.Errorf("migrate family database: %w", err)
	}

	var broker remote.Broker
	if a.cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, a.cfg.Redis, a.logg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = redisClient
		a.closers = append(a.closers, redisClient.Close)
		broker = remote.NewRedisBroker(redisClient)
	} else {
		a.logg.Info(ctx, "realtime channel disabled: polling the family row")
	}

	return remote.NewService(remote.ServiceParams{
		Repo:   remote.NewRepository(dbClient),
		Broker: broker,
		Logger: a.logg,
	})
}

// Close flushes pending sync and releases every resource in reverse order.
func (a *app) Close(ctx context.Context) error {
	var err error
	if a.engine != nil {
		err = multierr.Append(err, a.engine.Dispose(ctx))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
