package controllers

import (
	"context"
	"net/http"

	"github.com/arbormed/clinicstock-backend/api/responses"
	"github.com/arbormed/clinicstock-backend/pkg/config"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
)

const envHeader = "X-ClinicStock-Env"

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady answers ready only when both backing stores respond.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]string{"db": "ok", "redis": "ok"}
		healthy := true
		if db == nil {
			checks["db"] = "not configured"
			healthy = false
		} else if err := db.Ping(r.Context()); err != nil {
			if logg != nil {
				logg.Error(r.Context(), "readiness db ping failed", err)
			}
			checks["db"] = "unreachable"
			healthy = false
		}
		if cache == nil {
			checks["redis"] = "not configured"
			healthy = false
		} else if err := cache.Ping(r.Context()); err != nil {
			if logg != nil {
				logg.Error(r.Context(), "readiness redis ping failed", err)
			}
			checks["redis"] = "unreachable"
			healthy = false
		}

		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, checks)
			return
		}
		responses.WriteSuccess(w, checks)
	}
}
