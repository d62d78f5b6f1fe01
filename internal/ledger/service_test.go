package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/dbtest"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/pagination"
)

func TestServiceRecordAndListByUser(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := client.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := svc.Record(ctx, tx, Entry{
				UserID:    userID,
				OrderID:   uuid.New(),
				Type:      enums.TransactionTypePayment,
				Direction: enums.DirectionOut,
				Status:    enums.TransactionStatusEscrowed,
				Amount:    int64(1000 * (i + 1)),
				At:        base.Add(time.Duration(i) * time.Minute),
			})
			return err
		})
		require.NoError(t, err)
	}

	page, err := svc.ListByUser(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(3000), page.Items[0].Amount)
	assert.NotEmpty(t, page.NextCursor)

	next, err := svc.ListByUser(ctx, userID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, int64(1000), next.Items[0].Amount)
	assert.Empty(t, next.NextCursor)
}

func TestServiceRecordRequiresTransactionAndValidEntry(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	_, err = svc.Record(context.Background(), nil, Entry{})
	assert.Error(t, err)

	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := svc.Record(context.Background(), tx, Entry{
			UserID:    uuid.New(),
			OrderID:   uuid.New(),
			Type:      "BONUS",
			Direction: enums.DirectionIn,
		})
		return err
	})
	assert.Error(t, err)
}

func TestNetByOrderBalancesCompletedOrder(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)

	ctx := context.Background()
	orderID := uuid.New()
	buyer, seller, admin := uuid.New(), uuid.New(), uuid.New()
	entries := []Entry{
		{UserID: buyer, Type: enums.TransactionTypePayment, Direction: enums.DirectionOut, Status: enums.TransactionStatusEscrowed, Amount: 14100},
		{UserID: buyer, Type: enums.TransactionTypePayment, Direction: enums.DirectionOut, Status: enums.TransactionStatusSuccess, Amount: 14100},
		{UserID: seller, Type: enums.TransactionTypeSettlement, Direction: enums.DirectionIn, Status: enums.TransactionStatusSuccess, Amount: 12000},
		{UserID: admin, Type: enums.TransactionTypeFee, Direction: enums.DirectionIn, Status: enums.TransactionStatusSuccess, Amount: 2100},
	}
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, e := range entries {
			e.OrderID = orderID
			if _, err := svc.Record(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	}))

	net, err := svc.NetByOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(-14100), net[buyer])
	assert.Equal(t, int64(12000), net[seller])
	assert.Equal(t, int64(2100), net[admin])

	var sum int64
	for _, v := range net {
		sum += v
	}
	assert.Zero(t, sum)
}
