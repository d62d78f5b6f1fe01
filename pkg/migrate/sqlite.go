package migrate

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for local runs with
// PASMA_USE_SQLITE and for in-memory tests.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		roles TEXT NOT NULL DEFAULT '{user}',
		wallet_available INTEGER NOT NULL DEFAULT 0 CHECK (wallet_available >= 0),
		wallet_on_hold INTEGER NOT NULL DEFAULT 0 CHECK (wallet_on_hold >= 0),
		wallet_currency TEXT NOT NULL DEFAULT 'IDR',
		wallet_updated_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		total_sales INTEGER NOT NULL DEFAULT 0,
		last_sale_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		store_id TEXT NOT NULL,
		name TEXT NOT NULL,
		price INTEGER NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		sold INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL UNIQUE,
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		store_name TEXT NOT NULL,
		shipping_address TEXT NOT NULL,
		idempotency_key TEXT,
		subtotal INTEGER NOT NULL,
		shipping_fee INTEGER NOT NULL,
		service_fee INTEGER NOT NULL,
		tax INTEGER NOT NULL,
		total INTEGER NOT NULL,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		stock_deducted BOOLEAN NOT NULL DEFAULT 0,
		auto_cancel_at DATETIME,
		ship_by_at DATETIME,
		shipped_at DATETIME,
		grace_period_start_at DATETIME,
		auto_complete_at DATETIME,
		reminder_sent_at DATETIME,
		dispute_id TEXT,
		cancel_reason TEXT,
		canceled_by TEXT,
		canceled_at DATETIME,
		seller_take INTEGER,
		admin_take INTEGER,
		settled_at DATETIME,
		completed_by TEXT,
		completed_at DATETIME,
		version INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_buyer_idempotency ON orders (buyer_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		price INTEGER NOT NULL,
		qty INTEGER NOT NULL CHECK (qty > 0),
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wallet_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount INTEGER NOT NULL CHECK (amount >= 0),
		status TEXT NOT NULL,
		order_id TEXT NOT NULL,
		counterparty_id TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS disputes (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		store_id TEXT NOT NULL,
		invoice_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		evidence TEXT NOT NULL,
		status TEXT NOT NULL,
		resolution TEXT,
		admin_notes TEXT NOT NULL DEFAULT '',
		resolved_by TEXT,
		resolved_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_disputes_active_order ON disputes (order_id) WHERE status IN ('open','investigating')`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		channel TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		order_id TEXT,
		dispute_id TEXT,
		invoice_id TEXT,
		amount INTEGER,
		read_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME NOT NULL
	)`,
}

// ApplySQLite creates the schema on a sqlite connection.
func ApplySQLite(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if name := conn.Dialector.Name(); name != "sqlite" {
		return fmt.Errorf("sqlite schema cannot be applied to %s", name)
	}
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	if idx := strings.Index(stmt, "\n"); idx > 0 {
		return strings.TrimSpace(stmt[:idx])
	}
	return stmt
}
