package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/arbormed/clinicstock-backend/api/responses"
	"github.com/arbormed/clinicstock-backend/api/validators"
	"github.com/arbormed/clinicstock-backend/internal/returns"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
)

type returnCreateRequest struct {
	OrderID   *uuid.UUID `json:"order_id,omitempty"`
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	BatchID   uuid.UUID  `json:"batch_id" validate:"required"`
	Qty       int        `json:"qty" validate:"gt=0"`
	Reason    string     `json:"reason,omitempty"`
}

// ReturnCreate opens a supplier return, deducting stock immediately.
func ReturnCreate(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body returnCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.Create(r.Context(), tenantID, returns.CreateInput{
			OrderID:   body.OrderID,
			ProductID: body.ProductID,
			BatchID:   body.BatchID,
			Qty:       body.Qty,
			Reason:    body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ret)
	}
}

// ReturnList pages through the tenant's returns.
func ReturnList(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), tenantID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// ReturnDetail returns one supplier return.
func ReturnDetail(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		returnID, err := pathUUID(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.Get(r.Context(), tenantID, returnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}
