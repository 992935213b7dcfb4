package enums

import "fmt"

// PaymentMethod names the processor an order settles through. manual
// orders skip processor verification and wait for an operator mark-paid.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodSquare PaymentMethod = "square"
	PaymentMethodManual PaymentMethod = "manual"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodStripe, PaymentMethodSquare, PaymentMethodManual:
		return true
	}
	return false
}

func (m PaymentMethod) RequiresProcessorVerification() bool {
	return m == PaymentMethodStripe || m == PaymentMethodSquare
}

func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(raw)
	if !m.IsValid() {
		return "", fmt.Errorf("invalid payment method %q", raw)
	}
	return m, nil
}
