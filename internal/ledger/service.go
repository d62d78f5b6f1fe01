package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/pagination"
)

// Service records and reads wallet ledger entries.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*EntryPage, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WalletTransaction, error)
	NetByOrder(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int64, error)
}

// Entry captures the immutable data a ledger entry requires.
type Entry struct {
	UserID       uuid.UUID
	OrderID      uuid.UUID
	Counterparty *uuid.UUID
	Type         enums.TransactionType
	Direction    enums.TransactionDirection
	Status       enums.TransactionStatus
	Amount       int64
	At           time.Time
}

// EntryPage is one cursor page of a user's ledger.
type EntryPage struct {
	Items      []models.WalletTransaction `json:"items"`
	NextCursor string                     `json:"nextCursor,omitempty"`
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if entry.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if entry.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if !entry.Type.IsValid() {
		return nil, fmt.Errorf("invalid transaction type %q", entry.Type)
	}
	if !entry.Direction.IsValid() {
		return nil, fmt.Errorf("invalid transaction direction %q", entry.Direction)
	}
	if entry.Amount < 0 {
		return nil, fmt.Errorf("negative ledger amount %d", entry.Amount)
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}

	row := &models.WalletTransaction{
		ID:             uuid.New(),
		UserID:         entry.UserID,
		Type:           entry.Type,
		Direction:      entry.Direction,
		Amount:         entry.Amount,
		Status:         entry.Status,
		OrderID:        entry.OrderID,
		CounterpartyID: entry.Counterparty,
		CreatedAt:      at.UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*EntryPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list wallet transactions")
	}
	items, next := pagination.Page(rows, params.Limit, func(row models.WalletTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return &EntryPage{Items: items, NextCursor: next}, nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.WalletTransaction, error) {
	if orderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	return s.repo.ListByOrderID(ctx, orderID)
}

// NetByOrder sums signed entry amounts per user for one order. The buyer's
// escrow hold is the real debit; the PAYMENT/SUCCESS row written at
// completion confirms that same debit and is not counted again. For a
// finished order the values sum to zero.
func (s *service) NetByOrder(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int64, error) {
	entries, err := s.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	net := make(map[uuid.UUID]int64)
	for _, e := range entries {
		if e.Type == enums.TransactionTypePayment && e.Status == enums.TransactionStatusSuccess {
			continue
		}
		net[e.UserID] += e.Direction.Sign() * e.Amount
	}
	return net, nil
}
