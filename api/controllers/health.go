package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/motoyard/motoyard-backend/api/responses"
	"github.com/motoyard/motoyard-backend/pkg/config"
	"github.com/motoyard/motoyard-backend/pkg/db"
	pkgerrors "github.com/motoyard/motoyard-backend/pkg/errors"
	"github.com/motoyard/motoyard-backend/pkg/logger"
	"github.com/motoyard/motoyard-backend/pkg/storage/gcs"
)

const readinessTimeout = 5 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Motoyard-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every downstream dependency before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP db.Pinger, gcsP gcs.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Motoyard-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		failed := false

		probe := func(name string, p interface {
			Ping(ctx context.Context) error
		}) {
			if p == nil {
				checks[name] = "skipped"
				return
			}
			if err := p.Ping(ctx); err != nil {
				checks[name] = "unavailable"
				failed = true
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "health.ready.failed", err)
				}
				return
			}
			checks[name] = "ok"
		}

		probe("database", dbP)
		probe("redis", redisP)
		probe("storage", gcsP)

		if failed {
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
