package ledger

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
)

// Amounts are whole IDR values. Total is always derived, never accepted.
type Amounts struct {
	Subtotal   int64 `json:"subtotal"`
	Shipping   int64 `json:"shipping"`
	ServiceFee int64 `json:"serviceFee"`
	Tax        int64 `json:"tax"`
	Total      int64 `json:"total"`
}

// FeePolicy holds the platform charges added on top of the subtotal.
type FeePolicy struct {
	ServiceFee int64
	TaxRate    decimal.Decimal
}

// DefaultFeePolicy is a flat 2000 service fee and 1% tax.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{ServiceFee: 2000, TaxRate: decimal.RequireFromString("0.01")}
}

// Tax rounds subtotal*rate half away from zero.
func (p FeePolicy) Tax(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(p.TaxRate).Round(0).IntPart()
}

// ComputeAmounts prices an order from the caller supplied subtotal and shipping.
func (p FeePolicy) ComputeAmounts(subtotal, shipping int64) (Amounts, error) {
	if subtotal <= 0 {
		return Amounts{}, pkgerrors.New(pkgerrors.CodeValidation, "subtotal must be greater than zero")
	}
	if shipping < 0 {
		return Amounts{}, pkgerrors.New(pkgerrors.CodeValidation, "shipping must not be negative")
	}
	tax := p.Tax(subtotal)
	return Amounts{
		Subtotal:   subtotal,
		Shipping:   shipping,
		ServiceFee: p.ServiceFee,
		Tax:        tax,
		Total:      subtotal + shipping + p.ServiceFee + tax,
	}, nil
}

// Split divides an escrowed total between seller and platform so the two
// takes always sum to Total. A positive remainder goes to the platform; a
// negative one means the stored amounts are inconsistent.
func Split(a Amounts) (sellerTake, adminTake int64, err error) {
	if a.Total <= 0 {
		return 0, 0, pkgerrors.Newf(pkgerrors.CodeInternal, "invalid order total %d", a.Total)
	}
	sellerTake = a.Subtotal + a.Shipping
	adminTake = a.ServiceFee + a.Tax
	remainder := a.Total - sellerTake - adminTake
	if remainder < 0 {
		return 0, 0, pkgerrors.Newf(pkgerrors.CodeInternal,
			"order amounts exceed total: seller %d + admin %d > total %d", sellerTake, adminTake, a.Total)
	}
	adminTake += remainder
	return sellerTake, adminTake, nil
}
