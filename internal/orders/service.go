package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/internal/ledger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/metrics"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/pagination"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/tracing"
)

// Service exposes the escrow order lifecycle. Every mutating call is one
// transaction re-run on optimistic conflicts.
type Service interface {
	Place(ctx context.Context, actor Actor, input PlaceInput) (*PlaceResult, error)
	Accept(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	Ship(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (*OrderDTO, error)
	Complete(ctx context.Context, actor Actor, orderID uuid.UUID, by enums.CompletedBy) (*OrderDTO, error)
	SendGraceReminder(ctx context.Context, orderID uuid.UUID) (bool, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, actor Actor, params ListParams) (*ListResult, error)
	ListDue(ctx context.Context, kind DueKind, now time.Time, after *DueCursor, limit int) ([]DueOrder, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo          Repository
	Machine       *Machine
	Tx            txRunner
	Fees          ledger.FeePolicy
	Invoices      *ledger.InvoiceGenerator
	Roles         RoleChecker
	Metrics       *metrics.EscrowMetrics
	Logger        *logger.Logger
	RetryAttempts int
}

type service struct {
	repo     Repository
	machine  *Machine
	tx       txRunner
	fees     ledger.FeePolicy
	invoices *ledger.InvoiceGenerator
	roles    RoleChecker
	metrics  *metrics.EscrowMetrics
	logg     *logger.Logger
	attempts int
	now      func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if p.Machine == nil {
		return nil, fmt.Errorf("order machine required")
	}
	if p.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	invoices := p.Invoices
	if invoices == nil {
		invoices = ledger.NewInvoiceGenerator()
	}
	return &service{
		repo:     p.Repo,
		machine:  p.Machine,
		tx:       p.Tx,
		fees:     p.Fees,
		invoices: invoices,
		roles:    p.Roles,
		metrics:  p.Metrics,
		logg:     p.Logger,
		attempts: p.RetryAttempts,
		now:      time.Now,
	}, nil
}

func (s *service) Place(ctx context.Context, actor Actor, input PlaceInput) (*PlaceResult, error) {
	if actor.UserID == uuid.Nil || actor.IsSystem() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	if key != "" {
		if existing, err := s.findByKey(ctx, s.repo, actor.UserID, key); err != nil || existing != nil {
			return existing, err
		}
	}
	amounts, err := s.fees.ComputeAmounts(input.Amounts.Subtotal, input.Amounts.Shipping)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "orders.place", tracing.Event(string(EventPlace)))
	var result *PlaceResult
	place := func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if key != "" {
				existing, err := s.findByKey(ctx, repo, actor.UserID, key)
				if err != nil {
					return err
				}
				if existing != nil {
					result = existing
					return nil
				}
			}
			invoiceID, err := s.invoices.Generate(ctx, repo.InvoiceExists)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invoice id")
			}

			draft := newDraft(actor.UserID, invoiceID, input, amounts)
			if key != "" {
				draft.IdempotencyKey = &key
			}
			decision, err := s.machine.Create(ctx, tx, draft, Event{
				Kind:  EventPlace,
				Actor: Actor{UserID: actor.UserID, Role: enums.ActorBuyer},
				At:    s.now().UTC(),
			})
			if err != nil {
				return err
			}
			result = &PlaceResult{OrderID: decision.Next.ID, InvoiceID: decision.Next.InvoiceID}
			return nil
		})
	}
	for attempt := 1; ; attempt++ {
		err = db.RunWithRetry(ctx, s.retryPolicy(EventPlace), place)
		if err == nil || attempt == invoiceAttempts || !isInvoiceCollision(err) {
			break
		}
		// a concurrent place committed the same invoice id first
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "invoice id collision, regenerating")
	}
	if err != nil && key != "" && db.IsUniqueViolation(err, "") {
		if existing, lookupErr := s.findByKey(ctx, s.repo, actor.UserID, key); lookupErr == nil && existing != nil {
			err = nil
			result = existing
		}
	}
	if err != nil && db.IsUniqueViolation(err, "") {
		err = pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already exists")
	}
	tracing.End(span, err)
	s.metrics.IncTransition(string(EventPlace), outcome(Decision{}, err))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// invoiceAttempts bounds how often Place regenerates an invoice id that lost
// the unique index race.
const invoiceAttempts = 3

func isInvoiceCollision(err error) bool {
	return db.IsUniqueViolation(err, "ux_orders_invoice_id") || db.IsUniqueViolation(err, "orders.invoice_id")
}

func (s *service) findByKey(ctx context.Context, repo Repository, buyerID uuid.UUID, key string) (*PlaceResult, error) {
	order, err := repo.FindByIdempotencyKey(ctx, buyerID, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup idempotency key")
	}
	if order == nil {
		return nil, nil
	}
	return &PlaceResult{OrderID: order.ID, InvoiceID: order.InvoiceID}, nil
}

func newDraft(buyerID uuid.UUID, invoiceID string, input PlaceInput, amounts ledger.Amounts) Snapshot {
	orderID := uuid.New()
	items := make([]models.OrderItem, 0, len(input.Items))
	for i, item := range input.Items {
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: item.ProductID,
			Name:      strings.TrimSpace(item.Name),
			Price:     item.Price,
			Qty:       item.Qty,
			Position:  i,
		})
	}
	return Snapshot{
		ID:              orderID,
		InvoiceID:       invoiceID,
		BuyerID:         buyerID,
		SellerID:        input.SellerID,
		StoreID:         input.StoreID,
		StoreName:       strings.TrimSpace(input.StoreName),
		Items:           items,
		ShippingAddress: input.ShippingAddress,
		Subtotal:        amounts.Subtotal,
		Shipping:        amounts.Shipping,
		ServiceFee:      amounts.ServiceFee,
		Tax:             amounts.Tax,
		Total:           amounts.Total,
	}
}

func (s *service) Accept(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, orderID, Event{Kind: EventAccept, Actor: actor})
}

func (s *service) Ship(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	return s.transition(ctx, orderID, Event{Kind: EventShip, Actor: actor})
}

func (s *service) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (*OrderDTO, error) {
	return s.transition(ctx, orderID, Event{Kind: EventCancel, Actor: actor, Reason: strings.TrimSpace(reason)})
}

func (s *service) Complete(ctx context.Context, actor Actor, orderID uuid.UUID, by enums.CompletedBy) (*OrderDTO, error) {
	return s.transition(ctx, orderID, Event{Kind: EventComplete, Actor: actor, CompletedBy: by})
}

// SendGraceReminder reports whether a reminder was queued.
func (s *service) SendGraceReminder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var sent bool
	_, err := s.run(ctx, orderID, Event{Kind: EventRemind, Actor: SystemActor()}, func(d Decision) {
		sent = !d.Noop
	})
	return sent, err
}

func (s *service) transition(ctx context.Context, orderID uuid.UUID, ev Event) (*OrderDTO, error) {
	decision, err := s.run(ctx, orderID, ev, nil)
	if err != nil {
		return nil, err
	}
	dto := ToDTO(decision.Next)
	return &dto, nil
}

func (s *service) run(ctx context.Context, orderID uuid.UUID, ev Event, observe func(Decision)) (Decision, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	ctx, span := tracing.StartSpan(ctx, "orders."+string(ev.Kind),
		tracing.OrderID(orderID.String()),
		tracing.Event(string(ev.Kind)),
	)

	var decision Decision
	err := db.RunWithRetry(ctx, s.retryPolicy(ev.Kind), func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			attemptEv := ev
			if attemptEv.At.IsZero() {
				attemptEv.At = s.now().UTC()
			}
			d, err := s.machine.Apply(ctx, tx, orderID, attemptEv)
			if err != nil {
				return err
			}
			decision = d
			return nil
		})
	})
	tracing.End(span, err)
	s.metrics.IncTransition(string(ev.Kind), outcome(decision, err))
	if err != nil {
		return Decision{}, err
	}
	if observe != nil {
		observe(decision)
	}
	return decision, nil
}

func (s *service) retryPolicy(kind EventKind) db.RetryPolicy {
	return db.RetryPolicy{
		Attempts: s.attempts,
		OnRetry: func(attempt int, err error) {
			s.metrics.IncRetry(string(kind))
			s.logg.Debug(s.logg.WithFields(context.Background(), map[string]any{
				"event":   kind,
				"attempt": attempt,
				"error":   err.Error(),
			}), "retrying order transaction")
		},
	}
}

func outcome(d Decision, err error) string {
	switch {
	case err != nil:
		return string(pkgerrors.CodeOf(err))
	case d.Noop:
		return "noop"
	default:
		return "applied"
	}
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	ok, err := s.canView(ctx, actor, order)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order access denied")
	}
	dto := ToDTO(*order)
	return &dto, nil
}

// canView admits participants and SYSTEM. Admins are confirmed against the
// stored roles, never the token claim alone.
func (s *service) canView(ctx context.Context, actor Actor, order *models.Order) (bool, error) {
	switch {
	case actor.IsSystem():
		return true, nil
	case actor.UserID == uuid.Nil:
		return false, nil
	case actor.UserID == order.BuyerID, actor.UserID == order.SellerID:
		return true, nil
	case actor.Role != enums.ActorAdmin || s.roles == nil:
		return false, nil
	}
	ok, err := s.roles.HasRole(ctx, actor.UserID, enums.UserRoleAdmin)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load roles")
	}
	return ok, nil
}

func (s *service) ListForUser(ctx context.Context, actor Actor, params ListParams) (*ListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListForUser(ctx, actor.UserID, params.AsSeller, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	page, next := pagination.Page(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := make([]OrderDTO, 0, len(page))
	for _, o := range page {
		out = append(out, ToDTO(o))
	}
	return &ListResult{Orders: out, NextCursor: next}, nil
}

func (s *service) ListDue(ctx context.Context, kind DueKind, now time.Time, after *DueCursor, limit int) ([]DueOrder, error) {
	rows, err := s.repo.ListDue(ctx, kind, now, after, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("list %s orders", kind))
	}
	return rows, nil
}
