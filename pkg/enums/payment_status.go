package enums

import "fmt"

// PaymentStatus tracks where the escrowed funds of an order sit.
type PaymentStatus string

const (
	PaymentStatusEscrowed PaymentStatus = "ESCROWED"
	PaymentStatusSettled  PaymentStatus = "SETTLED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusEscrowed,
	PaymentStatusSettled,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
