package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
)

func TestComputeAmountsAddsFeeAndRoundedTax(t *testing.T) {
	policy := DefaultFeePolicy()

	amounts, err := policy.ComputeAmounts(5000, 1000)
	require.NoError(t, err)
	assert.Equal(t, Amounts{Subtotal: 5000, Shipping: 1000, ServiceFee: 2000, Tax: 50, Total: 8050}, amounts)

	amounts, err = policy.ComputeAmounts(10000, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(100), amounts.Tax)
	assert.Equal(t, int64(14100), amounts.Total)
}

func TestTaxRoundsHalfAwayFromZero(t *testing.T) {
	policy := DefaultFeePolicy()
	assert.Equal(t, int64(1), policy.Tax(50))
	assert.Equal(t, int64(0), policy.Tax(49))
	assert.Equal(t, int64(2), policy.Tax(150))

	custom := FeePolicy{ServiceFee: 0, TaxRate: decimal.RequireFromString("0.11")}
	assert.Equal(t, int64(1100), custom.Tax(10000))
}

func TestComputeAmountsRejectsInvalidInput(t *testing.T) {
	policy := DefaultFeePolicy()

	_, err := policy.ComputeAmounts(0, 1000)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = policy.ComputeAmounts(1000, -1)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestSplitSumsToTotal(t *testing.T) {
	seller, admin, err := Split(Amounts{Subtotal: 10000, Shipping: 2000, ServiceFee: 2000, Tax: 100, Total: 14100})
	require.NoError(t, err)
	assert.Equal(t, int64(12000), seller)
	assert.Equal(t, int64(2100), admin)
}

func TestSplitAbsorbsPositiveRemainderIntoAdmin(t *testing.T) {
	seller, admin, err := Split(Amounts{Subtotal: 5000, Shipping: 1000, ServiceFee: 0, Tax: 0, Total: 8050})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), seller)
	assert.Equal(t, int64(2050), admin)
	assert.Equal(t, int64(8050), seller+admin)
}

func TestSplitRejectsInconsistentAmounts(t *testing.T) {
	_, _, err := Split(Amounts{Subtotal: 5000, Shipping: 1000, ServiceFee: 2000, Tax: 50, Total: 6000})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))

	_, _, err = Split(Amounts{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))
}
