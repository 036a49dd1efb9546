package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reiger65/stonewhistle-workshop-manager/api/responses"
	"github.com/reiger65/stonewhistle-workshop-manager/api/validators"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/cron"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/sync"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
)

// The detached run gets its own generous deadline; the HTTP request returns
// long before this expires.
const backgroundSyncTimeout = 90 * time.Minute

type syncDriver interface {
	SyncAll(ctx context.Context, period sync.Period) (*sync.RunSummary, error)
	SyncOne(ctx context.Context, orderNumber string, opts sync.SyncOneOptions) error
	DedupeOrder(ctx context.Context, orderID uuid.UUID) (int, error)
}

type triggerSyncRequest struct {
	Period string `json:"period" validate:"omitempty,oneof=1week 1month 3months 6months 1year all"`
}

// TriggerSyncAll launches a full reconciliation run in the background. The
// worker lock serializes runs: a second trigger while one is in flight gets
// a conflict instead of a double sync.
func TriggerSyncAll(driver syncDriver, lock cron.Lock, defaultPeriod sync.Period, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req triggerSyncRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		period := defaultPeriod
		if req.Period != "" {
			parsed, err := sync.ParsePeriod(req.Period)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			period = parsed
		}

		locked, err := lock.Acquire(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquiring sync lock"))
			return
		}
		if !locked {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeStateConflict, "a sync run is already in progress"))
			return
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), backgroundSyncTimeout)
			defer cancel()
			defer func() {
				if err := lock.Release(ctx); err != nil && logg != nil {
					logg.Error(ctx, "releasing sync lock", err)
				}
			}()
			if _, err := driver.SyncAll(ctx, period); err != nil && logg != nil {
				logg.Error(ctx, "background sync finished with failures", err)
			}
		}()

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{
			"status": "started",
			"period": string(period),
		})
	}
}

// SyncOneOrder reconciles a single order synchronously.
func SyncOneOrder(driver syncDriver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		force, err := validators.ParseQueryBool(r, "force", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := driver.SyncOne(r.Context(), orderNumber, sync.SyncOneOptions{ForceReactivate: force}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order_number": orderNumber,
			"forced":       force,
		})
	}
}

// DedupeOrder collapses duplicate items for one order.
func DedupeOrder(driver syncDriver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawID := strings.TrimSpace(chi.URLParam(r, "orderId"))
		orderID, err := uuid.Parse(rawID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order id must be a valid uuid"))
			return
		}

		archived, err := driver.DedupeOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order_id":            orderID,
			"duplicates_archived": archived,
		})
	}
}
