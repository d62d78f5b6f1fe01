package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the listing whose stock is reserved on accept.
type Product struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StoreID   uuid.UUID `gorm:"column:store_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;not null"`
	Price     int64     `gorm:"column:price;not null"`
	Stock     int       `gorm:"column:stock;not null;default:0"`
	Sold      int       `gorm:"column:sold;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
