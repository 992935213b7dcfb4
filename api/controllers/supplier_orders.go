package controllers

import (
	"net/http"

	"github.com/dropflowhq/dropflow-backend/api/responses"
	"github.com/dropflowhq/dropflow-backend/internal/fulfillment"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
)

// SupplierOrderTracking returns the tracking snapshot for a supplier order.
func SupplierOrderTracking(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplierOrderID, err := parseIDParam(r, "supplierOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		info, err := svc.TrackSupplierOrder(r.Context(), supplierOrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}
