package suppliers

import "strings"

const defaultDeliveryOffsetDays = 5

// deliveryOffsetsBySupplier holds per-supplier estimated delivery
// offsets in days. Unlisted suppliers use the default.
var deliveryOffsetsBySupplier = map[string]int{
	"aliexpress":   7,
	"cj-dropship":  6,
	"spocket":      4,
	"us-warehouse": 2,
	"eu-warehouse": 3,
}

// DeliveryOffsetDays returns the estimated delivery offset for a supplier.
func DeliveryOffsetDays(supplierName string) int {
	key := strings.ToLower(strings.TrimSpace(supplierName))
	if days, ok := deliveryOffsetsBySupplier[key]; ok {
		return days
	}
	return defaultDeliveryOffsetDays
}
