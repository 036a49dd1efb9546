package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/reiger65/stonewhistle-workshop-manager/api/responses"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/config"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
)

const envHeader = "X-Stonewhistle-Env"

type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks each backing dependency with a short deadline. Any
// failing component flips the response to 503 so the load balancer drains
// the instance.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		components := map[string]string{}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				healthy = false
				components[name] = "down"
				if logg != nil {
					failCtx := logg.WithField(ctx, "component", name)
					logg.Error(failCtx, "readiness check failed", err)
				}
				continue
			}
			components[name] = "up"
		}

		status := http.StatusOK
		state := "ready"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status":     state,
			"components": components,
		})
	}
}
