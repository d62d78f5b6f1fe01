package enums

// Currency represents the wallet denomination.
type Currency string

const CurrencyIDR Currency = "IDR"

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	return c == CurrencyIDR
}
