package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reiger65/stonewhistle-workshop-manager/api/responses"
	"github.com/reiger65/stonewhistle-workshop-manager/api/validators"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/orders"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/pagination"
)

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ordered shipping delivered archived cancelled"`
}

type archiveOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a valid uuid")
	}
	return id, nil
}

// ListOrders returns one cursor page of active orders with their
// production items.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// GetOrder returns one order by its internal order number.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))
		if orderNumber == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}
		order, err := svc.GetByNumber(r.Context(), orderNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// SetOrderStatus moves an order through the shipping lifecycle.
func SetOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetStatus(r.Context(), orderID, enums.OrderStatus(req.Status)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order_id": orderID,
			"status":   req.Status,
		})
	}
}

// ArchiveOrder archives an order and everything in it.
func ArchiveOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req archiveOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		reason := req.Reason
		if reason == "" {
			reason = enums.ReasonManuallyRemoved
		}

		if err := svc.Archive(r.Context(), orderID, reason); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order_id": orderID,
			"archived": true,
		})
	}
}
