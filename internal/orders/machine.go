package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/internal/ledger"
	"github.com/RayhanLauzzadani/pasma-apps/internal/notifications"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox/payloads"
)

// Machine drives Transition against storage. Every call runs inside the
// caller's transaction: it reads the snapshot, writes the next state with a
// version guard and applies the effects.
type Machine struct {
	repo     Repository
	wallets  WalletStore
	ledger   LedgerRecorder
	notifier Notifier
	outbox   outbox.Emitter
	policy   Policy
	logg     *logger.Logger
	now      func() time.Time
}

// MachineDeps groups the collaborators of a Machine.
type MachineDeps struct {
	Repo     Repository
	Wallets  WalletStore
	Ledger   LedgerRecorder
	Notifier Notifier
	Outbox   outbox.Emitter
	Policy   Policy
	Logger   *logger.Logger
}

func NewMachine(deps MachineDeps) (*Machine, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Wallets == nil:
		return nil, fmt.Errorf("wallet store required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("ledger recorder required")
	case deps.Notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &Machine{
		repo:     deps.Repo,
		wallets:  deps.Wallets,
		ledger:   deps.Ledger,
		notifier: deps.Notifier,
		outbox:   deps.Outbox,
		policy:   deps.Policy,
		logg:     deps.Logger,
		now:      time.Now,
	}, nil
}

// Policy returns the timeline policy the machine applies.
func (m *Machine) Policy() Policy {
	return m.policy
}

// Load reads the order snapshot inside tx.
func (m *Machine) Load(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*Snapshot, error) {
	order, err := m.repo.WithTx(tx).FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// Apply runs one transition on a stored order.
func (m *Machine) Apply(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, ev Event) (Decision, error) {
	order, err := m.Load(ctx, tx, orderID)
	if err != nil {
		return Decision{}, err
	}
	return m.ApplyTo(ctx, tx, *order, ev)
}

// ApplyTo runs one transition on a snapshot the caller already loaded in tx.
func (m *Machine) ApplyTo(ctx context.Context, tx *gorm.DB, order Snapshot, ev Event) (Decision, error) {
	repo := m.repo.WithTx(tx)
	if ev.At.IsZero() {
		ev.At = m.now().UTC()
	}
	if ev.Kind == EventAccept && order.Status == enums.OrderStatusPlaced {
		ids := make([]uuid.UUID, 0, len(order.Items))
		for _, item := range order.Items {
			ids = append(ids, item.ProductID)
		}
		stock, err := repo.StockLevels(ctx, ids)
		if err != nil {
			return Decision{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stock")
		}
		ev.Stock = stock
	}

	decision, err := Transition(order, ev, m.policy)
	if err != nil {
		return Decision{}, err
	}
	if decision.Noop {
		return decision, nil
	}

	next := decision.Next
	if err := repo.UpdateGuarded(ctx, &next, order.Version); err != nil {
		if errors.Is(err, db.ErrStaleWrite) {
			return Decision{}, err
		}
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order")
	}
	decision.Next = next

	if err := m.applyEffects(ctx, tx, order, next, decision.Effects, ev.At); err != nil {
		return Decision{}, err
	}
	if err := m.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStateChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(ev.Actor),
		OccurredAt:    ev.At,
		Data: payloads.OrderStateChangedEvent{
			OrderID:       order.ID,
			InvoiceID:     order.InvoiceID,
			Event:         string(ev.Kind),
			From:          order.Status,
			To:            next.Status,
			PaymentStatus: next.PaymentStatus,
			Version:       next.Version,
		},
	}); err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue order event")
	}

	logCtx := m.logg.WithFields(m.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"from":  order.Status,
		"to":    next.Status,
		"event": ev.Kind,
		"actor": ev.Actor.Role,
	})
	m.logg.Info(logCtx, "order transition applied")
	return decision, nil
}

// Create places a new order from a draft snapshot carrying ids, items and amounts.
func (m *Machine) Create(ctx context.Context, tx *gorm.DB, draft Snapshot, ev Event) (Decision, error) {
	if ev.At.IsZero() {
		ev.At = m.now().UTC()
	}
	ev.Kind = EventPlace
	decision, err := Transition(draft, ev, m.policy)
	if err != nil {
		return Decision{}, err
	}

	next := decision.Next
	next.Version = 1
	next.CreatedAt = ev.At
	next.UpdatedAt = ev.At
	if err := m.repo.WithTx(tx).Create(ctx, &next); err != nil {
		return Decision{}, err
	}
	decision.Next = next

	if err := m.applyEffects(ctx, tx, draft, next, decision.Effects, ev.At); err != nil {
		return Decision{}, err
	}
	if err := m.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   next.ID,
		Actor:         actorRef(ev.Actor),
		OccurredAt:    ev.At,
		Data: payloads.OrderPlacedEvent{
			OrderID:   next.ID,
			InvoiceID: next.InvoiceID,
			BuyerID:   next.BuyerID,
			SellerID:  next.SellerID,
			StoreID:   next.StoreID,
			Total:     next.Total,
		},
	}); err != nil {
		return Decision{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue order event")
	}

	m.logg.Info(m.logg.WithOrderID(ctx, next.ID.String()), "order placed")
	return decision, nil
}

func (m *Machine) applyEffects(ctx context.Context, tx *gorm.DB, prev, next Snapshot, effects []Effect, at time.Time) error {
	repo := m.repo.WithTx(tx)
	disputeRef := next.DisputeID
	if disputeRef == nil {
		disputeRef = prev.DisputeID
	}
	orderID := next.ID

	for _, eff := range effects {
		switch e := eff.(type) {
		case WalletDelta:
			if err := m.wallets.ApplyDelta(ctx, tx, e.UserID, e.Available, e.OnHold); err != nil {
				return err
			}
		case StockDelta:
			ok, err := repo.AdjustStock(ctx, e.ProductID, e.Qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update stock")
			}
			if !ok && e.Qty < 0 {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
					WithDetails(map[string]any{"productId": e.ProductID})
			}
			if !ok {
				m.logg.Warn(m.logg.WithField(ctx, "product_id", e.ProductID.String()), "stock restore skipped, product missing")
			}
		case SalesDelta:
			if err := repo.AddSold(ctx, e.ProductID, e.Qty); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product sales")
			}
		case StoreSale:
			if err := repo.RecordStoreSale(ctx, e.StoreID, e.Qty, e.At); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update store sales")
			}
		case LedgerEntry:
			if _, err := m.ledger.Record(ctx, tx, ledger.Entry{
				UserID:       e.UserID,
				OrderID:      orderID,
				Counterparty: e.Counterparty,
				Type:         e.Type,
				Direction:    e.Direction,
				Status:       e.Status,
				Amount:       e.Amount,
				At:           at,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record wallet transaction")
			}
		case DisputeClosed:
			if err := repo.CloseDispute(ctx, e.DisputeID, e.Status, e.Resolution, e.At); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close dispute")
			}
		case Notify:
			if _, err := m.notifier.Emit(ctx, tx, notifications.Record{
				UserID:    e.Recipient,
				Channel:   e.Channel,
				Type:      e.Type,
				Params:    e.Params,
				OrderID:   &orderID,
				DisputeID: disputeRef,
				Amount:    e.Amount,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue notification")
			}
		default:
			return pkgerrors.Newf(pkgerrors.CodeInternal, "unhandled effect %T", eff)
		}
	}
	return nil
}

func actorRef(a Actor) *outbox.ActorRef {
	ref := &outbox.ActorRef{Role: string(a.Role)}
	if a.UserID != uuid.Nil {
		id := a.UserID
		ref.UserID = &id
	}
	return ref
}
