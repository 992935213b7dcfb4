package enums

import "fmt"

type ItemFulfillmentStatus string

const (
	ItemFulfillmentPending    ItemFulfillmentStatus = "pending"
	ItemFulfillmentDispatched ItemFulfillmentStatus = "dispatched"
	ItemFulfillmentShipped    ItemFulfillmentStatus = "shipped"
	ItemFulfillmentDelivered  ItemFulfillmentStatus = "delivered"
	ItemFulfillmentFailed     ItemFulfillmentStatus = "failed"
)

func (s ItemFulfillmentStatus) String() string {
	return string(s)
}

func (s ItemFulfillmentStatus) IsValid() bool {
	switch s {
	case ItemFulfillmentPending, ItemFulfillmentDispatched, ItemFulfillmentShipped,
		ItemFulfillmentDelivered, ItemFulfillmentFailed:
		return true
	}
	return false
}

func ParseItemFulfillmentStatus(raw string) (ItemFulfillmentStatus, error) {
	s := ItemFulfillmentStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid item fulfillment status %q", raw)
	}
	return s, nil
}
