package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/thejonthinator/frysen/api/responses"
	"github.com/thejonthinator/frysen/pkg/config"
	pkgerrors "github.com/thejonthinator/frysen/pkg/errors"
	"github.com/thejonthinator/frysen/pkg/logger"
)

const envHeader = "X-Frysen-Env"

// Pinger is any dependency that can report its own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency. Nil entries are reported as
// disabled rather than failing the check.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := make(map[string]string, len(deps))
		failed := false
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "disabled"
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "error"
				failed = true
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "health.ready.ping_failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}

		if failed {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
