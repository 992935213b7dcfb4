package controllers

import (
	"net/http"

	"github.com/dropflowhq/dropflow-backend/api/responses"
	"github.com/dropflowhq/dropflow-backend/api/validators"
	"github.com/dropflowhq/dropflow-backend/internal/fulfillment"
	"github.com/dropflowhq/dropflow-backend/internal/payouts"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
)

// AdminRunFulfillment triggers one processing batch on demand.
func AdminRunFulfillment(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ProcessPendingOrders(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "batch complete"})
	}
}

// AdminMarkOrderPaid records an operator-confirmed settlement.
func AdminMarkOrderPaid(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkOrderPaid(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "payment confirmed"})
	}
}

type resolveTransferRequest struct {
	Status string `json:"status" validate:"required,oneof=completed failed"`
	Note   string `json:"note,omitempty" validate:"max=500"`
}

// AdminResolveTransfer applies an operator decision to a parked transfer.
func AdminResolveTransfer(rec payouts.Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transferID, err := parseIDParam(r, "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req resolveTransferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := rec.Resolve(r.Context(), transferID, enums.TransferStatus(req.Status), req.Note); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "transfer resolved"})
	}
}
