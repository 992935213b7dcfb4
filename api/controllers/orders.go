package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dropflowhq/dropflow-backend/api/responses"
	"github.com/dropflowhq/dropflow-backend/api/validators"
	"github.com/dropflowhq/dropflow-backend/internal/fulfillment"
	"github.com/dropflowhq/dropflow-backend/pkg/enums"
	pkgerrors "github.com/dropflowhq/dropflow-backend/pkg/errors"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
	"github.com/dropflowhq/dropflow-backend/pkg/types"
)

type createOrderRequest struct {
	CustomerName    string                   `json:"customer_name" validate:"required,max=200"`
	CustomerEmail   string                   `json:"customer_email" validate:"required,email"`
	ShippingAddress types.Address            `json:"shipping_address" validate:"required"`
	PaymentMethod   string                   `json:"payment_method" validate:"required"`
	PaymentRef      *string                  `json:"payment_ref,omitempty"`
	Items           []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type createOrderItemRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	ProductName    string    `json:"product_name" validate:"required,max=300"`
	Qty            int       `json:"qty" validate:"required,min=1"`
	UnitPriceCents int64     `json:"unit_price_cents" validate:"min=0"`
	MarginFraction *string   `json:"margin_fraction,omitempty"`
	SupplierName   string    `json:"supplier_name" validate:"required,max=120"`
}

// CreateOrder accepts a customer order into the pipeline.
func CreateOrder(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := fulfillment.CreateOrderInput{
			CustomerName:    req.CustomerName,
			CustomerEmail:   req.CustomerEmail,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   enums.PaymentMethod(req.PaymentMethod),
			PaymentRef:      req.PaymentRef,
		}
		for _, item := range req.Items {
			var margin *decimal.Decimal
			if item.MarginFraction != nil {
				parsed, err := decimal.NewFromString(*item.MarginFraction)
				if err != nil {
					responses.WriteError(r.Context(), logg, w,
						pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid margin fraction"))
					return
				}
				margin = &parsed
			}
			input.Items = append(input.Items, fulfillment.CreateOrderItemInput{
				ProductID:      item.ProductID,
				ProductName:    item.ProductName,
				Qty:            item.Qty,
				UnitPriceCents: item.UnitPriceCents,
				MarginFraction: margin,
				SupplierName:   item.SupplierName,
			})
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderStatus returns the order with its supplier orders and transfers.
func OrderStatus(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.GetOrderStatus(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}
