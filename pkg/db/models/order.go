package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/types"
)

// Order is the escrow aggregate. Version guards every state write.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID       string                `gorm:"column:invoice_id;not null;uniqueIndex"`
	BuyerID         uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID        uuid.UUID             `gorm:"column:seller_id;type:uuid;not null"`
	StoreID         uuid.UUID             `gorm:"column:store_id;type:uuid;not null"`
	StoreName       string                `gorm:"column:store_name;not null"`
	Items           []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	IdempotencyKey  *string               `gorm:"column:idempotency_key"`

	Subtotal   int64 `gorm:"column:subtotal;not null"`
	Shipping   int64 `gorm:"column:shipping_fee;not null"`
	ServiceFee int64 `gorm:"column:service_fee;not null"`
	Tax        int64 `gorm:"column:tax;not null"`
	Total      int64 `gorm:"column:total;not null"`

	Status        enums.OrderStatus   `gorm:"column:status;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;not null"`
	StockDeducted bool                `gorm:"column:stock_deducted;not null;default:false"`

	AutoCancelAt       *time.Time `gorm:"column:auto_cancel_at"`
	ShipByAt           *time.Time `gorm:"column:ship_by_at"`
	ShippedAt          *time.Time `gorm:"column:shipped_at"`
	GracePeriodStartAt *time.Time `gorm:"column:grace_period_start_at"`
	AutoCompleteAt     *time.Time `gorm:"column:auto_complete_at"`
	ReminderSentAt     *time.Time `gorm:"column:reminder_sent_at"`
	DisputeID          *uuid.UUID `gorm:"column:dispute_id;type:uuid"`

	CancelReason *string          `gorm:"column:cancel_reason"`
	CanceledBy   *enums.ActorRole `gorm:"column:canceled_by"`
	CanceledAt   *time.Time       `gorm:"column:canceled_at"`

	SellerTake  *int64             `gorm:"column:seller_take"`
	AdminTake   *int64             `gorm:"column:admin_take"`
	SettledAt   *time.Time         `gorm:"column:settled_at"`
	CompletedBy *enums.CompletedBy `gorm:"column:completed_by"`
	CompletedAt *time.Time         `gorm:"column:completed_at"`

	Version   int       `gorm:"column:version;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is one ordered line; Position keeps the caller's ordering.
type OrderItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;not null"`
	Price     int64     `gorm:"column:price;not null"`
	Qty       int       `gorm:"column:qty;not null"`
	Position  int       `gorm:"column:position;not null"`
}
