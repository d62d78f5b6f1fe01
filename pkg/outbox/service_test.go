package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/dbtest"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
)

func TestEmitStoresEnvelopeInTransaction(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "test"}))

	orderID := uuid.New()
	require.NoError(t, client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &ActorRef{Role: string(enums.ActorBuyer)},
			Data:          map[string]any{"order_id": orderID.String()},
		})
	}))

	rows, err := repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, orderID, rows[0].AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.Equal(t, rows[0].ID.String(), envelope.EventID)
	assert.JSONEq(t, `{"order_id":"`+orderID.String()+`"}`, string(envelope.Data))
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)

	boom := errors.New("boom")
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          map[string]any{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := repo.FetchUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEmitRejectsUnknownEventType(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)
	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{EventType: "nope", AggregateID: uuid.New()})
	})
	require.Error(t, err)
}

func TestMarkPublishedAndRetention(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	ctx := context.Background()

	old := time.Now().UTC().Add(-72 * time.Hour)
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventNotificationCreated,
			AggregateType: enums.AggregateNotification,
			AggregateID:   uuid.New(),
			Data:          map[string]any{},
			OccurredAt:    old,
		})
	}))
	rows, err := repo.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, repo.MarkPublished(ctx, rows[0].ID, old))
	remaining, err := repo.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	deleted, err := repo.DeletePublishedBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestDLQMoveRemovesSourceRow(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(client.DB())
	dlq := NewDLQRepository(client.DB())
	svc := NewService(repo, nil)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.EventDisputeOpened,
			AggregateType: enums.AggregateDispute,
			AggregateID:   uuid.New(),
			Data:          map[string]any{},
		})
	}))
	rows, err := repo.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]

	long := strings.Repeat("x", 2000)
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return dlq.MoveTx(ctx, tx, models.OutboxDLQ{
			EventID:       row.ID,
			EventType:     row.EventType,
			AggregateType: row.AggregateType,
			AggregateID:   row.AggregateID,
			Payload:       row.Payload,
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
			ErrorMessage:  &long,
			AttemptCount:  3,
			FailedAt:      time.Now().UTC(),
		})
	}))

	stored, err := dlq.FindByEventID(ctx, row.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, *stored.ErrorMessage, maxDLQErrorLen)

	remaining, err := repo.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestFetchForPublishSkipsExhaustedRows(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)

	for i := 0; i < 2; i++ {
		require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
			return svc.Emit(ctx, tx, DomainEvent{
				EventType:     enums.EventOrderStateChanged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   uuid.New(),
				Data:          map[string]any{"n": i},
			})
		}))
	}
	rows, err := repo.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return repo.MarkFailedTx(ctx, tx, rows[0].ID, errors.New("publish timeout"))
	}))

	var locked []models.OutboxEvent
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		locked, err = repo.FetchForPublishTx(ctx, tx, 10, 1)
		return err
	}))
	require.Len(t, locked, 1)
	assert.Equal(t, rows[1].ID, locked[0].ID)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		locked, err = repo.FetchForPublishTx(ctx, tx, 10, 0)
		return err
	}))
	require.Len(t, locked, 2)
	assert.Equal(t, 1, locked[0].AttemptCount)
	require.NotNil(t, locked[0].LastError)
	assert.Equal(t, "publish timeout", *locked[0].LastError)
}
