package suppliers

import (
	"context"

	"github.com/dropflowhq/dropflow-backend/pkg/types"
)

// PlacementRequest is what gets sent upstream when an item is dispatched.
type PlacementRequest struct {
	Reference       string
	SupplierName    string
	ProductName     string
	Qty             int
	TotalCents      int64
	ShippingAddress types.Address
}

// PlacementAck is the supplier's acknowledgment of a placed order.
type PlacementAck struct {
	Accepted       bool
	RejectedReason string
}

// Gateway abstracts the upstream supplier integration. Errors returned
// here are treated as transient and retried; a rejection comes back as
// an unaccepted ack and fails permanently.
type Gateway interface {
	PlaceOrder(ctx context.Context, req PlacementRequest) (PlacementAck, error)
}

// StaticGateway acknowledges every placement. It backs suppliers that
// have no API integration and are fulfilled over email/portal exports.
type StaticGateway struct{}

func (StaticGateway) PlaceOrder(ctx context.Context, req PlacementRequest) (PlacementAck, error) {
	return PlacementAck{Accepted: true}, nil
}
