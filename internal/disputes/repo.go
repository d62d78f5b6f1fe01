package disputes

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/pagination"
)

// Repository persists disputes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dispute *models.Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error)
	Close(ctx context.Context, id uuid.UUID, close Closure) error
	ListOpen(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Dispute, error)
}

// Closure is the admin decision written onto a dispute.
type Closure struct {
	Status     enums.DisputeStatus
	Resolution enums.DisputeResolution
	AdminNotes string
	ResolvedBy uuid.UUID
	ResolvedAt time.Time
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).First(&dispute, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status IN ?", orderID, enums.ActiveDisputeStatuses()).
		First(&dispute).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) Close(ctx context.Context, id uuid.UUID, c Closure) error {
	return r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      c.Status,
			"resolution":  c.Resolution,
			"admin_notes": c.AdminNotes,
			"resolved_by": c.ResolvedBy,
			"resolved_at": c.ResolvedAt,
		}).Error
}

func (r *repository) ListOpen(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.Dispute, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("status IN ?", enums.ActiveDisputeStatuses())
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Dispute
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
