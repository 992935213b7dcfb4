package enums

import "fmt"

type SupplierOrderStatus string

const (
	SupplierOrderPlaced     SupplierOrderStatus = "placed"
	SupplierOrderProcessing SupplierOrderStatus = "processing"
	SupplierOrderShipped    SupplierOrderStatus = "shipped"
	SupplierOrderDelivered  SupplierOrderStatus = "delivered"
	SupplierOrderCanceled   SupplierOrderStatus = "canceled"
)

func (s SupplierOrderStatus) String() string {
	return string(s)
}

func (s SupplierOrderStatus) IsValid() bool {
	switch s {
	case SupplierOrderPlaced, SupplierOrderProcessing, SupplierOrderShipped,
		SupplierOrderDelivered, SupplierOrderCanceled:
		return true
	}
	return false
}

func ParseSupplierOrderStatus(raw string) (SupplierOrderStatus, error) {
	s := SupplierOrderStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid supplier order status %q", raw)
	}
	return s, nil
}
