package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/arbormed/clinicstock-backend/api/responses"
	"github.com/arbormed/clinicstock-backend/api/validators"
	"github.com/arbormed/clinicstock-backend/internal/outbound"
	"github.com/arbormed/clinicstock-backend/pkg/logger"
)

type outboundLineRequest struct {
	ProductID   uuid.UUID `json:"product_id" validate:"required"`
	BatchID     uuid.UUID `json:"batch_id" validate:"required"`
	Qty         int       `json:"qty" validate:"gt=0"`
	PatientName string    `json:"patient_name,omitempty"`
	ChartNo     string    `json:"chart_no,omitempty"`
	Damaged     bool      `json:"damaged,omitempty"`
	Defective   bool      `json:"defective,omitempty"`
	Memo        string    `json:"memo,omitempty"`
}

func (req outboundLineRequest) toInput() outbound.LineInput {
	return outbound.LineInput{
		ProductID:   req.ProductID,
		BatchID:     req.BatchID,
		Qty:         req.Qty,
		PatientName: req.PatientName,
		ChartNo:     req.ChartNo,
		Damaged:     req.Damaged,
		Defective:   req.Defective,
		Memo:        req.Memo,
	}
}

type outboundSingleRequest struct {
	ManagerName string `json:"manager_name" validate:"required"`
	outboundLineRequest
}

type outboundBulkRequest struct {
	ManagerName string                `json:"manager_name" validate:"required"`
	Lines       []outboundLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (req outboundBulkRequest) toInput() outbound.DispatchInput {
	lines := make([]outbound.LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, line.toInput())
	}
	return outbound.DispatchInput{ManagerName: req.ManagerName, Lines: lines}
}

// OutboundSingle records one dispensing line.
func OutboundSingle(svc outbound.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body outboundSingleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.DispatchSingle(r.Context(), tenantID, body.ManagerName, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

// OutboundBulk records multiple lines atomically; one bad line fails all.
func OutboundBulk(svc outbound.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body outboundBulkRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.DispatchBulk(r.Context(), tenantID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txns)
	}
}

// OutboundPackage records a preassembled kit dispatch, all-or-nothing.
func OutboundPackage(svc outbound.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body outboundBulkRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txns, err := svc.DispatchPackage(r.Context(), tenantID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txns)
	}
}

// OutboundUnified commits the valid lines and reports the failed ones.
func OutboundUnified(svc outbound.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body outboundBulkRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.DispatchUnified(r.Context(), tenantID, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if report.Failed > 0 {
			status = http.StatusMultiStatus
		}
		responses.WriteSuccessStatus(w, status, report)
	}
}

// OutboundHistory pages through dispensing transactions with filters.
func OutboundHistory(svc outbound.Service, logg *logger.Logger) http.HandlerFunc {
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

		filters := outbound.HistoryFilters{
			Manager: strings.TrimSpace(r.URL.Query().Get("manager")),
			Query:   strings.TrimSpace(r.URL.Query().Get("q")),
		}
		if filters.ProductID, err = validators.ParseQueryUUID(r, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.From, err = validators.ParseQueryDate(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filters.To, err = validators.ParseQueryDate(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.History(r.Context(), tenantID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// OutboundDetail returns one dispensing transaction.
func OutboundDetail(svc outbound.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := tenantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txnID, err := pathUUID(r, "txnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Get(r.Context(), tenantID, txnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}
