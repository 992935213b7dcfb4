package controllers

import (
	"context"
	"net/http"

	"gorm.io/gorm"

	"github.com/dropflowhq/dropflow-backend/api/responses"
	"github.com/dropflowhq/dropflow-backend/pkg/config"
	"github.com/dropflowhq/dropflow-backend/pkg/db"
	pkgerrors "github.com/dropflowhq/dropflow-backend/pkg/errors"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
)

const envHeader = "X-Dropflow-Env"

type redisPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the backing stores before reporting readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, gdb *gorm.DB, cache redisPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{}

		if gdb != nil {
			if err := db.Ping(r.Context(), gdb); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
			checks["database"] = "ok"
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
			checks["redis"] = "ok"
		}

		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
