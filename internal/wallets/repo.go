package wallets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

// Repository reads and mutates the wallet columns of users.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ApplyDelta(ctx context.Context, userID uuid.UUID, available, onHold int64, at time.Time) (bool, error)
	Initialize(ctx context.Context, userID uuid.UUID, currency enums.Currency, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the wallet repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ApplyDelta adds the deltas only when neither balance would go negative.
// It reports false when the guard rejected the update or the user is missing.
func (r *repository) ApplyDelta(ctx context.Context, userID uuid.UUID, available, onHold int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND wallet_available + ? >= 0 AND wallet_on_hold + ? >= 0", userID, available, onHold).
		Updates(map[string]any{
			"wallet_available":  gorm.Expr("wallet_available + ?", available),
			"wallet_on_hold":    gorm.Expr("wallet_on_hold + ?", onHold),
			"wallet_updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Initialize(ctx context.Context, userID uuid.UUID, currency enums.Currency, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND wallet_updated_at IS NULL", userID).
		Updates(map[string]any{
			"wallet_available":  0,
			"wallet_on_hold":    0,
			"wallet_currency":   currency,
			"wallet_updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
