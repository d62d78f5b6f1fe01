package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// User is the identity record; the wallet lives on the same row so balance
// changes and identity lookups share one lock.
type User struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Email           string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	DisplayName     string         `gorm:"column:display_name;not null"`
	Roles           pq.StringArray `gorm:"column:roles;type:text[];not null;default:'{user}'"`
	WalletAvailable int64          `gorm:"column:wallet_available;not null;default:0"`
	WalletOnHold    int64          `gorm:"column:wallet_on_hold;not null;default:0"`
	WalletCurrency  enums.Currency `gorm:"column:wallet_currency;not null;default:'IDR'"`
	WalletUpdatedAt *time.Time     `gorm:"column:wallet_updated_at"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

// HasRole reports whether roles contains role.
func (u User) HasRole(role enums.UserRole) bool {
	for _, r := range u.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}
