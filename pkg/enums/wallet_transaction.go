package enums

import "fmt"

// TransactionType classifies a wallet ledger entry.
type TransactionType string

const (
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeRefund     TransactionType = "REFUND"
	TransactionTypeSettlement TransactionType = "SETTLEMENT"
	TransactionTypeFee        TransactionType = "FEE"
)

var validTransactionTypes = []TransactionType{
	TransactionTypePayment,
	TransactionTypeRefund,
	TransactionTypeSettlement,
	TransactionTypeFee,
}

func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}

// TransactionDirection is IN for credits and OUT for debits of the owner.
type TransactionDirection string

const (
	DirectionIn  TransactionDirection = "IN"
	DirectionOut TransactionDirection = "OUT"
)

func (d TransactionDirection) IsValid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Sign returns +1 for IN and -1 for OUT.
func (d TransactionDirection) Sign() int64 {
	if d == DirectionOut {
		return -1
	}
	return 1
}

// TransactionStatus mirrors the payment phase an entry was written in.
type TransactionStatus string

const (
	TransactionStatusEscrowed TransactionStatus = "ESCROWED"
	TransactionStatusRefunded TransactionStatus = "REFUNDED"
	TransactionStatusSuccess  TransactionStatus = "SUCCESS"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusEscrowed, TransactionStatusRefunded, TransactionStatusSuccess:
		return true
	}
	return false
}
