package enums

import "fmt"

// OrderStatus tracks an order through the fulfillment pipeline.
// failed is absorbing; completed and failed are the only terminal states.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusPaymentVerifying OrderStatus = "payment_verifying"
	OrderStatusPaid             OrderStatus = "paid"
	OrderStatusFulfilling       OrderStatus = "fulfilling"
	OrderStatusCompleted        OrderStatus = "completed"
	OrderStatusFailed           OrderStatus = "failed"
)

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaymentVerifying, OrderStatusPaid,
		OrderStatusFulfilling, OrderStatusCompleted, OrderStatusFailed:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

// CanTransitionTo enforces the pipeline's forward-only state machine.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusFailed {
		return true
	}
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPaymentVerifying
	case OrderStatusPaymentVerifying:
		return next == OrderStatusPaid
	case OrderStatusPaid:
		return next == OrderStatusFulfilling
	case OrderStatusFulfilling:
		return next == OrderStatusCompleted
	}
	return false
}

func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid order status %q", raw)
	}
	return s, nil
}
