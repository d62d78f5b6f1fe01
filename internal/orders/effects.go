package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/internal/notifications"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// Effect is a side effect a transition asks the driver to apply inside the
// same transaction as the order write.
type Effect interface {
	effect()
}

// WalletDelta adds signed amounts to a user's balances.
type WalletDelta struct {
	UserID    uuid.UUID
	Available int64
	OnHold    int64
}

// LedgerEntry appends one wallet transaction row.
type LedgerEntry struct {
	UserID       uuid.UUID
	Type         enums.TransactionType
	Direction    enums.TransactionDirection
	Status       enums.TransactionStatus
	Amount       int64
	Counterparty *uuid.UUID
}

// StockDelta changes product stock. Negative deltas only apply while stock
// covers them.
type StockDelta struct {
	ProductID uuid.UUID
	Qty       int
}

// SalesDelta bumps a product's sold counter.
type SalesDelta struct {
	ProductID uuid.UUID
	Qty       int
}

// StoreSale bumps the store's sales counters.
type StoreSale struct {
	StoreID uuid.UUID
	Qty     int
	At      time.Time
}

// Notify queues a notification record.
type Notify struct {
	Recipient uuid.UUID
	Channel   enums.NotificationChannel
	Type      enums.NotificationType
	Params    notifications.Params
	Amount    *int64
}

// DisputeClosed closes the order's active dispute.
type DisputeClosed struct {
	DisputeID  uuid.UUID
	Status     enums.DisputeStatus
	Resolution enums.DisputeResolution
	At         time.Time
}

func (WalletDelta) effect()   {}
func (LedgerEntry) effect()   {}
func (StockDelta) effect()    {}
func (SalesDelta) effect()    {}
func (StoreSale) effect()     {}
func (Notify) effect()        {}
func (DisputeClosed) effect() {}
