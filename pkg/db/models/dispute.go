package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// Dispute is a buyer complaint that freezes auto-completion of its order.
type Dispute struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID                `gorm:"column:order_id;type:uuid;not null"`
	BuyerID     uuid.UUID                `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID    uuid.UUID                `gorm:"column:seller_id;type:uuid;not null"`
	StoreID     uuid.UUID                `gorm:"column:store_id;type:uuid;not null"`
	InvoiceID   string                   `gorm:"column:invoice_id;not null"`
	Reason      string                   `gorm:"column:reason;not null"`
	Description string                   `gorm:"column:description;not null;default:''"`
	Evidence    pq.StringArray           `gorm:"column:evidence;type:text[];not null"`
	Status      enums.DisputeStatus      `gorm:"column:status;not null"`
	Resolution  *enums.DisputeResolution `gorm:"column:resolution"`
	AdminNotes  string                   `gorm:"column:admin_notes;not null;default:''"`
	ResolvedBy  *uuid.UUID               `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt  *time.Time               `gorm:"column:resolved_at"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
