package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox/payloads"
)

// Record describes one notification to persist. UserID is ignored on the
// admin channel.
type Record struct {
	UserID    uuid.UUID
	Channel   enums.NotificationChannel
	Type      enums.NotificationType
	Params    Params
	OrderID   *uuid.UUID
	DisputeID *uuid.UUID
	Amount    *int64
}

// Emitter persists notifications and queues them for push delivery inside
// the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, rec Record) (*models.Notification, error)
}

type emitter struct {
	repo   Repository
	outbox outbox.Emitter
	now    func() time.Time
}

func NewEmitter(repo Repository, out outbox.Emitter) (Emitter, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if out == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &emitter{repo: repo, outbox: out, now: time.Now}, nil
}

func (e *emitter) Emit(ctx context.Context, tx *gorm.DB, rec Record) (*models.Notification, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if !rec.Type.IsValid() {
		return nil, fmt.Errorf("invalid notification type %q", rec.Type)
	}
	channel := rec.Channel
	if channel == "" {
		channel = enums.NotificationChannelUser
	}

	title, body := Render(rec.Type, rec.Params)
	row := &models.Notification{
		ID:        uuid.New(),
		Channel:   channel,
		Type:      rec.Type,
		Title:     title,
		Body:      body,
		OrderID:   rec.OrderID,
		DisputeID: rec.DisputeID,
		Amount:    rec.Amount,
		CreatedAt: e.now().UTC(),
	}
	if channel == enums.NotificationChannelUser {
		if rec.UserID == uuid.Nil {
			return nil, fmt.Errorf("recipient required for %s", rec.Type)
		}
		userID := rec.UserID
		row.UserID = &userID
	}
	if rec.Params.InvoiceID != "" {
		inv := rec.Params.InvoiceID
		row.InvoiceID = &inv
	}

	if err := e.repo.WithTx(tx).Create(ctx, row); err != nil {
		return nil, err
	}

	err := e.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventNotificationCreated,
		AggregateType: enums.AggregateNotification,
		AggregateID:   row.ID,
		OccurredAt:    row.CreatedAt,
		Data: payloads.NotificationCreatedEvent{
			NotificationID: row.ID,
			UserID:         row.UserID,
			Channel:        row.Channel,
			Type:           row.Type,
			Title:          row.Title,
			Body:           row.Body,
			OrderID:        row.OrderID,
			DisputeID:      row.DisputeID,
		},
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}
