package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	invoiceAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	invoiceSuffixLen = 6
	invoiceAttempts  = 3
)

// InvoiceExistsFunc reports whether an invoice id is already taken.
type InvoiceExistsFunc func(ctx context.Context, invoiceID string) (bool, error)

// InvoiceGenerator mints human facing ids of the form INV-YYYYMMDD-XXXXXX.
type InvoiceGenerator struct {
	now    func() time.Time
	random func(n int) (string, error)
}

func NewInvoiceGenerator() *InvoiceGenerator {
	return &InvoiceGenerator{now: time.Now, random: randomSuffix}
}

// Generate tries up to three random candidates against exists and falls back
// to a millisecond timestamp id when all of them collide.
func (g *InvoiceGenerator) Generate(ctx context.Context, exists InvoiceExistsFunc) (string, error) {
	now := g.now().UTC()
	prefix := "INV-" + now.Format("20060102") + "-"
	for i := 0; i < invoiceAttempts; i++ {
		suffix, err := g.random(invoiceSuffixLen)
		if err != nil {
			return "", fmt.Errorf("invoice suffix: %w", err)
		}
		candidate := prefix + suffix
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("invoice lookup: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return fmt.Sprintf("INV-%d", now.UnixMilli()), nil
}

func randomSuffix(n int) (string, error) {
	max := big.NewInt(int64(len(invoiceAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = invoiceAlphabet[idx.Int64()]
	}
	return string(out), nil
}
