package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/arbormed/clinicstock-backend/api/middleware"
	"github.com/arbormed/clinicstock-backend/api/responses"
	"github.com/arbormed/clinicstock-backend/api/validators"
	"github.com/arbormed/clinicstock-backend/internal/drafts"
	pkgerrors "github.com/arbormed/clinicstock-backend/pkg/errors"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
)

const sessionIDHeader = "X-Session-Id"

func sessionContext(r *http.Request) (uuid.UUID, string, error) {
	tenantID, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeValidation, "tenant context missing")
	}
	sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
	if sessionID == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeValidation, "session header is required")
	}
	return tenantID, sessionID, nil
}

// DraftGet returns the session draft, creating an empty one on first access.
func DraftGet(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, sessionID, err := sessionContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		draft, err := svc.GetOrCreate(r.Context(), tenantID, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, draft)
	}
}

type draftItemRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	BatchID   *uuid.UUID `json:"batch_id,omitempty"`
	Qty       int        `json:"qty" validate:"min=0"`
}

// DraftSetItem sets the absolute quantity of one draft line; qty zero removes
// the line.
func DraftSetItem(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, sessionID, err := sessionContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body draftItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draft, err := svc.SetItem(r.Context(), tenantID, sessionID, drafts.ItemInput{
			ProductID: body.ProductID,
			BatchID:   body.BatchID,
			Qty:       body.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, draft)
	}
}

type draftReplaceRequest struct {
	Items []draftItemRequest `json:"items" validate:"required,min=1,dive"`
}

// DraftReplace swaps the full line set of the session draft.
func DraftReplace(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, sessionID, err := sessionContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body draftReplaceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inputs := make([]drafts.ItemInput, 0, len(body.Items))
		for _, item := range body.Items {
			inputs = append(inputs, drafts.ItemInput{
				ProductID: item.ProductID,
				BatchID:   item.BatchID,
				Qty:       item.Qty,
			})
		}

		draft, err := svc.ReplaceItems(r.Context(), tenantID, sessionID, inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, draft)
	}
}

// DraftClear drops the session draft entirely.
func DraftClear(svc drafts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, sessionID, err := sessionContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context(), tenantID, sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
