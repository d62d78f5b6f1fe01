package models

import (
	"time"

	"github.com/google/uuid"
)

// Store is the seller storefront; sales counters are bumped on completion.
type Store struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID    uuid.UUID  `gorm:"column:owner_id;type:uuid;not null"`
	Name       string     `gorm:"column:name;not null"`
	TotalSales int64      `gorm:"column:total_sales;not null;default:0"`
	LastSaleAt *time.Time `gorm:"column:last_sale_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
