package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thejonthinator/frysen/api/controllers"
	"github.com/thejonthinator/frysen/api/realtime"
	"github.com/thejonthinator/frysen/api/routes"
	"github.com/thejonthinator/frysen/internal/cron"
	"github.com/thejonthinator/frysen/pkg/instance"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API, websocket push and background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return serve(ctx, a, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$FRYSEN_APP_PORT)")
	return cmd
}

func serve(ctx context.Context, a *app, addr string) error {
	if addr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = a.cfg.App.Port
		}
		addr = ":" + port
	}

	hub := realtime.NewHub(a.engine, a.logg, a.cfg.App.CORSOrigins...)
	hub.Start()
	defer hub.Close()

	ready := map[string]controllers.Pinger{"database": nil, "redis": nil}
	if a.db != nil {
		ready["database"] = a.db
	}
	if a.redis != nil {
		ready["redis"] = a.redis
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   a.cfg,
			Logger:   a.logg,
			Engine:   a.engine,
			Realtime: hub,
			Gatherer: a.registry,
			Ready:    ready,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	cronErr := make(chan error, 1)
	cronCtx, cancelCron := context.WithCancel(ctx)
	defer cancelCron()
	if err := startCron(cronCtx, a, cronErr); err != nil {
		return err
	}

	ctx = a.logg.WithFields(ctx, map[string]any{
		"env":       a.cfg.App.Env,
		"addr":      addr,
		"device_id": a.engine.DeviceID(),
		"instance":  instance.GetID(),
	})
	a.logg.Info(ctx, "starting frysen server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			a.logg.Error(ctx, "server stopped unexpectedly", err)
		}
		return err
	case err := <-cronErr:
		a.logg.Error(ctx, "cron service stopped unexpectedly", err)
		_ = server.Close()
		return err
	case <-ctx.Done():
	}

	a.logg.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close()
	return server.Shutdown(shutdownCtx)
}

// startCron runs the release poll on its own goroutine. With redis configured
// the poll is locked across devices sharing it.
func startCron(ctx context.Context, a *app, errs chan<- error) error {
	registry := cron.NewRegistry()
	if a.cfg.Updates.Enabled {
		job, err := cron.NewUpdateCheckJob(cron.UpdateCheckJobParams{
			Logger:   a.logg,
			Checker:  a.engine,
			Interval: a.cfg.Updates.PollInterval,
		})
		if err != nil {
			return err
		}
		registry.Register(job)
	}

	var lock cron.Lock
	if a.redis != nil {
		redisLock, err := cron.NewRedisLock(a.redis, 0)
		if err != nil {
			return err
		}
		lock = redisLock
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   a.logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  a.cronMet,
		Interval: a.cfg.Updates.PollInterval,
	})
	if err != nil {
		return err
	}
	go func() {
		if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs <- err
		}
	}()
	return nil
}
