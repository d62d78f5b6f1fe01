package wallets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
)

// Wallet is the balance view of a user.
type Wallet struct {
	UserID    uuid.UUID      `json:"userId"`
	Available int64          `json:"available"`
	OnHold    int64          `json:"onHold"`
	Currency  enums.Currency `json:"currency"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty"`
}

// Service exposes guarded wallet mutations. Balances are only changed from
// inside order transitions.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Wallet, error)
	ApplyDelta(ctx context.Context, tx *gorm.DB, userID uuid.UUID, available, onHold int64) error
	InitWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	user, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
	}
	return &Wallet{
		UserID:    user.ID,
		Available: user.WalletAvailable,
		OnHold:    user.WalletOnHold,
		Currency:  user.WalletCurrency,
		UpdatedAt: user.WalletUpdatedAt,
	}, nil
}

func (s *service) ApplyDelta(ctx context.Context, tx *gorm.DB, userID uuid.UUID, available, onHold int64) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if available == 0 && onHold == 0 {
		return nil
	}
	repo := s.repo.WithTx(tx)
	ok, err := repo.ApplyDelta(ctx, userID, available, onHold, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update wallet")
	}
	if ok {
		return nil
	}

	user, err := repo.FindByUserID(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load wallet")
	}
	if user == nil {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "wallet %s not found", userID)
	}
	if user.WalletAvailable+available < 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient balance").
			WithDetails(map[string]any{"available": user.WalletAvailable, "required": -available})
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient held funds")
}

// InitWallet sets an empty IDR wallet once; later calls return the existing wallet.
func (s *service) InitWallet(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	created, err := s.repo.Initialize(ctx, userID, enums.CurrencyIDR, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "initialize wallet")
	}
	if created {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "wallet initialized")
	}
	return s.Get(ctx, userID)
}
