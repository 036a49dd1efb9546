package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reiger65/stonewhistle-workshop-manager/api/responses"
	"github.com/reiger65/stonewhistle-workshop-manager/api/validators"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/items"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/enums"
	pkgerrors "github.com/reiger65/stonewhistle-workshop-manager/pkg/errors"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
)

type setStageRequest struct {
	Stage string `json:"stage" validate:"required,oneof=ordered building tuned tested shipped delivered"`
}

type archiveItemRequest struct {
	Note string `json:"note" validate:"omitempty,max=500"`
}

func parseItemID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "itemId"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "item id must be a valid uuid")
	}
	return id, nil
}

// GetItem returns one production item.
func GetItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// SetItemStage advances an item through the production pipeline. Moving into
// building freezes the item's specification.
func SetItemStage(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setStageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetStage(r.Context(), itemID, enums.ItemStage(req.Stage)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"item_id": itemID,
			"stage":   req.Stage,
		})
	}
}

// ArchiveItem removes an item from the active pipeline by operator request.
// Sync runs will never resurrect it.
func ArchiveItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := parseItemID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req archiveItemRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		if err := svc.ArchiveManual(r.Context(), itemID, req.Note); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"item_id":  itemID,
			"archived": true,
		})
	}
}
