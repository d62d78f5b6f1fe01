package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/internal/ledger"
	"github.com/RayhanLauzzadani/pasma-apps/internal/notifications"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RoleChecker reads a user's stored roles.
type RoleChecker interface {
	HasRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (bool, error)
}

// WalletStore applies guarded balance deltas.
type WalletStore interface {
	ApplyDelta(ctx context.Context, tx *gorm.DB, userID uuid.UUID, available, onHold int64) error
}

// LedgerRecorder appends wallet transactions.
type LedgerRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry ledger.Entry) (*models.WalletTransaction, error)
}

// Notifier persists notifications in the caller's transaction.
type Notifier interface {
	Emit(ctx context.Context, tx *gorm.DB, rec notifications.Record) (*models.Notification, error)
}
