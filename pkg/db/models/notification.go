package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// Notification stores in-app notifications. UserID is nil on the admin channel.
type Notification struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	UserID    *uuid.UUID                `gorm:"column:user_id;type:uuid"`
	Channel   enums.NotificationChannel `gorm:"column:channel;not null"`
	Type      enums.NotificationType    `gorm:"column:type;not null"`
	Title     string                    `gorm:"column:title;not null"`
	Body      string                    `gorm:"column:body;not null"`
	OrderID   *uuid.UUID                `gorm:"column:order_id;type:uuid"`
	DisputeID *uuid.UUID                `gorm:"column:dispute_id;type:uuid"`
	InvoiceID *string                   `gorm:"column:invoice_id"`
	Amount    *int64                    `gorm:"column:amount"`
	ReadAt    *time.Time                `gorm:"column:read_at"`
	CreatedAt time.Time                 `gorm:"column:created_at;not null"`
}
