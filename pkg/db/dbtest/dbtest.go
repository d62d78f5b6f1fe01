// Package dbtest opens isolated in-memory sqlite databases carrying the
// service schema, for repository and service tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/db"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/migrate"
)

// Open returns a client bound to a fresh named in-memory database. The pool is
// pinned to one connection so the database lives as long as the test.
func Open(t *testing.T) *db.Client {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=0", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.ApplySQLite(context.Background(), conn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db.NewFromGorm(conn)
}

// SeedUser inserts a user with the given wallet balance.
func SeedUser(t *testing.T, conn *gorm.DB, available int64, roles ...enums.UserRole) models.User {
	t.Helper()
	if len(roles) == 0 {
		roles = []enums.UserRole{enums.UserRoleUser}
	}
	roleNames := make(pq.StringArray, 0, len(roles))
	for _, r := range roles {
		roleNames = append(roleNames, string(r))
	}
	now := time.Now().UTC()
	user := models.User{
		ID:              uuid.New(),
		Email:           uuid.NewString() + "@pasma.test",
		DisplayName:     "user",
		Roles:           roleNames,
		WalletAvailable: available,
		WalletCurrency:  enums.CurrencyIDR,
		WalletUpdatedAt: &now,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedStore inserts a store owned by ownerID.
func SeedStore(t *testing.T, conn *gorm.DB, ownerID uuid.UUID) models.Store {
	t.Helper()
	store := models.Store{ID: uuid.New(), OwnerID: ownerID, Name: "Toko Pasma"}
	if err := conn.Create(&store).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

// SeedProduct inserts a product with the given stock.
func SeedProduct(t *testing.T, conn *gorm.DB, storeID uuid.UUID, price int64, stock int) models.Product {
	t.Helper()
	product := models.Product{ID: uuid.New(), StoreID: storeID, Name: "Beras 5kg", Price: price, Stock: stock}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// ReloadUser reads the user row back.
func ReloadUser(t *testing.T, conn *gorm.DB, id uuid.UUID) models.User {
	t.Helper()
	var user models.User
	if err := conn.First(&user, "id = ?", id).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return user
}

// ReloadProduct reads the product row back.
func ReloadProduct(t *testing.T, conn *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product
}
