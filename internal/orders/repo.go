package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/db"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/pagination"
)

// DueKind selects one of the overdue sweeps.
type DueKind string

const (
	DueUnaccepted   DueKind = "unaccepted"
	DueUnshipped    DueKind = "unshipped"
	DueReminder     DueKind = "reminder"
	DueAutoComplete DueKind = "auto_complete"
)

// DueOrder is the keyset position of an overdue order.
type DueOrder struct {
	ID       uuid.UUID
	Deadline time.Time
}

// DueCursor resumes a due sweep after the (deadline, id) it last saw.
type DueCursor struct {
	Deadline time.Time
	ID       uuid.UUID
}

// Cursor returns the position to resume after this order.
func (o DueOrder) Cursor() *DueCursor {
	return &DueCursor{Deadline: o.Deadline, ID: o.ID}
}

// Repository persists orders and the inventory counters their transitions touch.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*models.Order, error)
	InvoiceExists(ctx context.Context, invoiceID string) (bool, error)
	Create(ctx context.Context, order *models.Order) error
	UpdateGuarded(ctx context.Context, next *models.Order, expectedVersion int) error
	ListForUser(ctx context.Context, userID uuid.UUID, asSeller bool, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	ListDue(ctx context.Context, kind DueKind, now time.Time, after *DueCursor, limit int) ([]DueOrder, error)

	StockLevels(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error)
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (bool, error)
	AddSold(ctx context.Context, productID uuid.UUID, qty int) error
	RecordStoreSale(ctx context.Context, storeID uuid.UUID, qty int, at time.Time) error
	CloseDispute(ctx context.Context, disputeID uuid.UUID, status enums.DisputeStatus, resolution enums.DisputeResolution, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, buyerID uuid.UUID, key string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND idempotency_key = ?", buyerID, key).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) InvoiceExists(ctx context.Context, invoiceID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("invoice_id = ?", invoiceID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// UpdateGuarded writes the state columns only when the stored version still
// matches, bumping it. A lost race returns db.ErrStaleWrite.
func (r *repository) UpdateGuarded(ctx context.Context, next *models.Order, expectedVersion int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND version = ?", next.ID, expectedVersion).
		Updates(stateColumns(next, expectedVersion+1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return db.ErrStaleWrite
	}
	next.Version = expectedVersion + 1
	return nil
}

func stateColumns(o *models.Order, version int) map[string]any {
	return map[string]any{
		"status":                o.Status,
		"payment_status":        o.PaymentStatus,
		"stock_deducted":        o.StockDeducted,
		"auto_cancel_at":        o.AutoCancelAt,
		"ship_by_at":            o.ShipByAt,
		"shipped_at":            o.ShippedAt,
		"grace_period_start_at": o.GracePeriodStartAt,
		"auto_complete_at":      o.AutoCompleteAt,
		"reminder_sent_at":      o.ReminderSentAt,
		"dispute_id":            o.DisputeID,
		"cancel_reason":         o.CancelReason,
		"canceled_by":           o.CanceledBy,
		"canceled_at":           o.CanceledAt,
		"seller_take":           o.SellerTake,
		"admin_take":            o.AdminTake,
		"settled_at":            o.SettledAt,
		"completed_by":          o.CompletedBy,
		"completed_at":          o.CompletedAt,
		"version":               version,
	}
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, asSeller bool, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	column := "buyer_id"
	if asSeller {
		column = "seller_id"
	}
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where(column+" = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var orders []models.Order
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListDue pages overdue orders ordered by (deadline, id). Passing the last
// row back as after never re-selects rows already visited in this run.
func (r *repository) ListDue(ctx context.Context, kind DueKind, now time.Time, after *DueCursor, limit int) ([]DueOrder, error) {
	var (
		column string
		query  = r.db.WithContext(ctx).Model(&models.Order{})
	)
	switch kind {
	case DueUnaccepted:
		column = "auto_cancel_at"
		query = query.Where("status = ?", enums.OrderStatusPlaced)
	case DueUnshipped:
		column = "ship_by_at"
		query = query.Where("status = ?", enums.OrderStatusAccepted)
	case DueReminder:
		column = "grace_period_start_at"
		query = query.Where("status = ? AND reminder_sent_at IS NULL", enums.OrderStatusShipped)
	case DueAutoComplete:
		column = "auto_complete_at"
		query = query.Where("status = ? AND dispute_id IS NULL", enums.OrderStatusShipped)
	default:
		return nil, errors.New("unknown due kind " + string(kind))
	}
	query = query.Where(column+" IS NOT NULL AND "+column+" <= ?", now)
	if after != nil {
		query = query.Where("("+column+" > ?) OR ("+column+" = ? AND id > ?)", after.Deadline, after.Deadline, after.ID)
	}

	var rows []struct {
		ID       uuid.UUID
		Deadline time.Time
	}
	if err := query.
		Select("id, " + column + " AS deadline").
		Order(column + " ASC").
		Order("id ASC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]DueOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, DueOrder{ID: row.ID, Deadline: row.Deadline})
	}
	return out, nil
}

func (r *repository) StockLevels(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	levels := make(map[uuid.UUID]int, len(productIDs))
	if len(productIDs) == 0 {
		return levels, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Select("id", "stock").
		Where("id IN ?", productIDs).
		Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		levels[p.ID] = p.Stock
	}
	return levels, nil
}

// AdjustStock applies delta; decrements only land while stock covers them.
func (r *repository) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", productID)
	if delta < 0 {
		query = query.Where("stock >= ?", -delta)
	}
	res := query.Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AddSold(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("sold", gorm.Expr("sold + ?", qty)).Error
}

func (r *repository) RecordStoreSale(ctx context.Context, storeID uuid.UUID, qty int, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", storeID).
		Updates(map[string]any{
			"total_sales":  gorm.Expr("total_sales + ?", qty),
			"last_sale_at": at,
		}).Error
}

// CloseDispute closes the dispute only while it is still active.
func (r *repository) CloseDispute(ctx context.Context, disputeID uuid.UUID, status enums.DisputeStatus, resolution enums.DisputeResolution, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ? AND status IN ?", disputeID, enums.ActiveDisputeStatuses()).
		Updates(map[string]any{
			"status":      status,
			"resolution":  resolution,
			"resolved_at": at,
		}).Error
}
