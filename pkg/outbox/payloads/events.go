package payloads

import (
	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// OrderPlacedEvent is emitted once the buyer's funds are escrowed.
type OrderPlacedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	InvoiceID string    `json:"invoice_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	StoreID   uuid.UUID `json:"store_id"`
	Total     int64     `json:"total"`
}

// OrderStateChangedEvent captures every applied transition.
type OrderStateChangedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	InvoiceID     string              `json:"invoice_id"`
	Event         string              `json:"event"`
	From          enums.OrderStatus   `json:"from"`
	To            enums.OrderStatus   `json:"to"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Version       int                 `json:"version"`
}

// DisputeOpenedEvent is emitted when a buyer reports a shipped order.
type DisputeOpenedEvent struct {
	DisputeID uuid.UUID `json:"dispute_id"`
	OrderID   uuid.UUID `json:"order_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Reason    string    `json:"reason"`
}

// DisputeResolvedEvent is emitted when an admin closes a dispute.
type DisputeResolvedEvent struct {
	DisputeID  uuid.UUID               `json:"dispute_id"`
	OrderID    uuid.UUID               `json:"order_id"`
	Resolution enums.DisputeResolution `json:"resolution"`
	Status     enums.DisputeStatus     `json:"status"`
	ResolvedBy *uuid.UUID              `json:"resolved_by,omitempty"`
}

// NotificationCreatedEvent carries a persisted notification to push delivery.
type NotificationCreatedEvent struct {
	NotificationID uuid.UUID                 `json:"notification_id"`
	UserID         *uuid.UUID                `json:"user_id,omitempty"`
	Channel        enums.NotificationChannel `json:"channel"`
	Type           enums.NotificationType    `json:"type"`
	Title          string                    `json:"title"`
	Body           string                    `json:"body"`
	OrderID        *uuid.UUID                `json:"order_id,omitempty"`
	DisputeID      *uuid.UUID                `json:"dispute_id,omitempty"`
}
