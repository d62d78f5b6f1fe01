package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// WalletTransaction is an append-only ledger entry owned by one user.
type WalletTransaction struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID                  `gorm:"column:user_id;type:uuid;not null"`
	Type           enums.TransactionType      `gorm:"column:type;not null"`
	Direction      enums.TransactionDirection `gorm:"column:direction;not null"`
	Amount         int64                      `gorm:"column:amount;not null"`
	Status         enums.TransactionStatus    `gorm:"column:status;not null"`
	OrderID        uuid.UUID                  `gorm:"column:order_id;type:uuid;not null"`
	CounterpartyID *uuid.UUID                 `gorm:"column:counterparty_id;type:uuid"`
	CreatedAt      time.Time                  `gorm:"column:created_at;not null"`
}
