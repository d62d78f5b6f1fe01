package orders

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/internal/ledger"
	"github.com/RayhanLauzzadani/pasma-apps/internal/notifications"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
)

// Snapshot is the order row as read at the start of a transition.
type Snapshot = models.Order

// EventKind names a transition trigger.
type EventKind string

const (
	EventPlace              EventKind = "place"
	EventAccept             EventKind = "accept"
	EventShip               EventKind = "ship"
	EventCancel             EventKind = "cancel"
	EventComplete           EventKind = "complete"
	EventDispute            EventKind = "dispute"
	EventResumeAfterDispute EventKind = "resume_after_dispute"
	EventRemind             EventKind = "remind"
)

// Actor is the principal driving a transition. UserID is nil for SYSTEM.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// SystemActor is the scheduler and dispute resolver identity.
func SystemActor() Actor {
	return Actor{Role: enums.ActorSystem}
}

// IsSystem reports whether the actor is the privileged scheduler identity.
func (a Actor) IsSystem() bool {
	return a.Role == enums.ActorSystem
}

// Event carries the trigger and the inputs a transition needs.
type Event struct {
	Kind  EventKind
	Actor Actor
	At    time.Time

	// cancel
	Reason     string
	ViaDispute bool
	// complete
	CompletedBy enums.CompletedBy
	// dispute
	DisputeID uuid.UUID
	// accept: current stock per product, absent when the product is gone
	Stock map[uuid.UUID]int
}

// Policy holds the timeline windows and the platform fee account.
type Policy struct {
	AdminID            uuid.UUID
	AcceptWindow       time.Duration
	ShipWindow         time.Duration
	GraceDelay         time.Duration
	AutoCompleteDelay  time.Duration
	RejectResumeWindow time.Duration
}

// DefaultPolicy returns the production windows with the given fee account.
func DefaultPolicy(adminID uuid.UUID) Policy {
	return Policy{
		AdminID:            adminID,
		AcceptWindow:       24 * time.Hour,
		ShipWindow:         48 * time.Hour,
		GraceDelay:         48 * time.Hour,
		AutoCompleteDelay:  60 * time.Hour,
		RejectResumeWindow: 24 * time.Hour,
	}
}

// Decision is the outcome of Transition. A Noop decision carries no effects.
type Decision struct {
	Noop    bool
	Next    Snapshot
	Effects []Effect
}

func noop(s Snapshot) (Decision, error) {
	return Decision{Noop: true, Next: s}, nil
}

// Transition computes the next order state and its effects. It does not touch
// storage; the driver applies the result atomically.
func Transition(s Snapshot, ev Event, p Policy) (Decision, error) {
	switch ev.Kind {
	case EventPlace:
		return place(s, ev, p)
	case EventAccept:
		return accept(s, ev, p)
	case EventShip:
		return ship(s, ev, p)
	case EventCancel:
		return cancel(s, ev)
	case EventComplete:
		return complete(s, ev, p)
	case EventDispute:
		return dispute(s, ev)
	case EventResumeAfterDispute:
		return resumeAfterDispute(s, ev, p)
	case EventRemind:
		return remind(s, ev)
	}
	return Decision{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order event %q", ev.Kind)
}

func place(s Snapshot, ev Event, p Policy) (Decision, error) {
	if s.Status != "" {
		return Decision{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order already exists")
	}
	if s.Total <= 0 {
		return Decision{}, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}
	next := s
	next.Status = enums.OrderStatusPlaced
	next.PaymentStatus = enums.PaymentStatusEscrowed
	next.AutoCancelAt = at(ev.At.Add(p.AcceptWindow))

	seller := s.SellerID
	return Decision{
		Next: next,
		Effects: []Effect{
			WalletDelta{UserID: s.BuyerID, Available: -s.Total, OnHold: s.Total},
			LedgerEntry{
				UserID:       s.BuyerID,
				Type:         enums.TransactionTypePayment,
				Direction:    enums.DirectionOut,
				Status:       enums.TransactionStatusEscrowed,
				Amount:       s.Total,
				Counterparty: &seller,
			},
			Notify{
				Recipient: s.SellerID,
				Type:      enums.NotificationOrderPlaced,
				Params:    notifications.Params{InvoiceID: s.InvoiceID, Amount: s.Total},
			},
		},
	}, nil
}

func accept(s Snapshot, ev Event, p Policy) (Decision, error) {
	if ev.Actor.UserID != s.SellerID || ev.Actor.IsSystem() {
		return Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can accept this order")
	}
	switch s.Status {
	case enums.OrderStatusAccepted, enums.OrderStatusShipped, enums.OrderStatusCompleted:
		return noop(s)
	case enums.OrderStatusPlaced:
	default:
		return Decision{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot accept order in status %s", s.Status)
	}
	if s.PaymentStatus != enums.PaymentStatusEscrowed {
		return Decision{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is not escrowed")
	}

	wanted := make(map[uuid.UUID]int, len(s.Items))
	for _, item := range s.Items {
		wanted[item.ProductID] += item.Qty
	}
	for productID, qty := range wanted {
		stock, ok := ev.Stock[productID]
		if !ok {
			return Decision{}, pkgerrors.New(pkgerrors.CodeStateConflict, "product not found").
				WithDetails(map[string]any{"productId": productID})
		}
		if stock < qty {
			return Decision{}, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
				WithDetails(map[string]any{"productId": productID, "stock": stock, "requested": qty})
		}
	}

	effects := make([]Effect, 0, len(s.Items)+1)
	for _, item := range s.Items {
		effects = append(effects, StockDelta{ProductID: item.ProductID, Qty: -item.Qty})
	}
	effects = append(effects, Notify{
		Recipient: s.BuyerID,
		Type:      enums.NotificationOrderAccepted,
		Params:    notifications.Params{InvoiceID: s.InvoiceID},
	})

	next := s
	next.Status = enums.OrderStatusAccepted
	next.StockDeducted = true
	next.AutoCancelAt = nil
	next.ShipByAt = at(ev.At.Add(p.ShipWindow))
	return Decision{Next: next, Effects: effects}, nil
}

func ship(s Snapshot, ev Event, p Policy) (Decision, error) {
	if ev.Actor.UserID != s.SellerID || ev.Actor.IsSystem() {
		return Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller can ship this order")
	}
	switch s.Status {
	case enums.OrderStatusShipped, enums.OrderStatusDisputed, enums.OrderStatusCompleted:
		return noop(s)
	case enums.OrderStatusAccepted:
	default:
		return Decision{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot ship order in status %s", s.Status)
	}
	if s.PaymentStatus != enums.PaymentStatusEscrowed {
		return Decision{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is not escrowed")
	}

	next := s
	next.Status = enums.OrderStatusShipped
	next.ShippedAt = at(ev.At)
	next.GracePeriodStartAt = at(ev.At.Add(p.GraceDelay))
	next.AutoCompleteAt = at(ev.At.Add(p.AutoCompleteDelay))
	next.ShipByAt = nil
	next.ReminderSentAt = nil
	return Decision{
		Next: next,
		Effects: []Effect{Notify{
			Recipient: s.BuyerID,
			Type:      enums.NotificationOrderShipped,
			Params:    notifications.Params{InvoiceID: s.InvoiceID},
		}},
	}, nil
}

var cancellable = map[enums.OrderStatus]bool{
	enums.OrderStatusPlaced:   true,
	enums.OrderStatusAccepted: true,
	enums.OrderStatusShipped:  true,
	enums.OrderStatusDisputed: true,
}

func cancel(s Snapshot, ev Event) (Decision, error) {
	var by enums.ActorRole
	switch {
	case ev.Actor.IsSystem():
		by = enums.ActorSystem
	case ev.Actor.UserID == s.BuyerID:
		by = enums.ActorBuyer
	case ev.Actor.UserID == s.SellerID:
		by = enums.ActorSeller
	default:
		return Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer or seller can cancel this order")
	}
	if !cancellable[s.Status] || s.PaymentStatus != enums.PaymentStatusEscrowed || s.Total <= 0 {
		return noop(s)
	}

	seller := s.SellerID
	effects := []Effect{
		WalletDelta{UserID: s.BuyerID, Available: s.Total, OnHold: -s.Total},
	}
	if s.StockDeducted {
		for _, item := range s.Items {
			effects = append(effects, StockDelta{ProductID: item.ProductID, Qty: item.Qty})
		}
	}
	effects = append(effects, LedgerEntry{
		UserID:       s.BuyerID,
		Type:         enums.TransactionTypeRefund,
		Direction:    enums.DirectionIn,
		Status:       enums.TransactionStatusRefunded,
		Amount:       s.Total,
		Counterparty: &seller,
	})
	if s.Status == enums.OrderStatusDisputed && s.DisputeID != nil {
		effects = append(effects, DisputeClosed{
			DisputeID:  *s.DisputeID,
			Status:     enums.DisputeStatusResolved,
			Resolution: enums.DisputeResolutionRefund,
			At:         ev.At,
		})
	}

	amount := s.Total
	params := notifications.Params{InvoiceID: s.InvoiceID, Amount: s.Total, Reason: ev.Reason, Actor: by}
	if ev.ViaDispute {
		effects = append(effects,
			Notify{Recipient: s.BuyerID, Type: enums.NotificationDisputeApproved, Params: params, Amount: &amount},
			Notify{Recipient: s.SellerID, Type: enums.NotificationDisputeRefunded, Params: params, Amount: &amount},
		)
	} else {
		effects = append(effects, Notify{Recipient: s.BuyerID, Type: enums.NotificationOrderCanceled, Params: params, Amount: &amount})
	}

	reason := ev.Reason
	next := s
	next.Status = enums.OrderStatusCanceled
	next.PaymentStatus = enums.PaymentStatusRefunded
	next.StockDeducted = false
	next.CancelReason = &reason
	next.CanceledBy = &by
	next.CanceledAt = at(ev.At)
	next.DisputeID = nil
	clearDeadlines(&next)
	return Decision{Next: next, Effects: effects}, nil
}

func complete(s Snapshot, ev Event, p Policy) (Decision, error) {
	switch ev.CompletedBy {
	case enums.CompletedByBuyer:
		if ev.Actor.IsSystem() || ev.Actor.UserID != s.BuyerID {
			return Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can confirm this order")
		}
	case enums.CompletedByAuto:
		if !ev.Actor.IsSystem() {
			return Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "automatic completion is reserved for the system")
		}
	default:
		return Decision{}, pkgerrors.New(pkgerrors.CodeValidation, "completedBy must be buyer or auto")
	}
	if s.PaymentStatus != enums.PaymentStatusEscrowed {
		return Decision{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order payment is %s", s.PaymentStatus)
	}
	if s.Status != enums.OrderStatusShipped {
		return Decision{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot complete order in status %s", s.Status)
	}
	if s.SellerID == uuid.Nil {
		return Decision{}, pkgerrors.New(pkgerrors.CodeInternal, "order has no seller")
	}
	if p.AdminID == uuid.Nil {
		return Decision{}, pkgerrors.New(pkgerrors.CodeInternal, "platform account not configured")
	}
	sellerTake, adminTake, err := ledger.Split(ledger.Amounts{
		Subtotal:   s.Subtotal,
		Shipping:   s.Shipping,
		ServiceFee: s.ServiceFee,
		Tax:        s.Tax,
		Total:      s.Total,
	})
	if err != nil {
		return Decision{}, err
	}

	buyer, seller := s.BuyerID, s.SellerID
	effects := []Effect{
		WalletDelta{UserID: s.BuyerID, OnHold: -s.Total},
		WalletDelta{UserID: s.SellerID, Available: sellerTake},
	}
	if adminTake > 0 {
		effects = append(effects, WalletDelta{UserID: p.AdminID, Available: adminTake})
	}
	sold := 0
	for _, item := range s.Items {
		effects = append(effects, SalesDelta{ProductID: item.ProductID, Qty: item.Qty})
		sold += item.Qty
	}
	effects = append(effects,
		StoreSale{StoreID: s.StoreID, Qty: sold, At: ev.At},
		LedgerEntry{UserID: s.BuyerID, Type: enums.TransactionTypePayment, Direction: enums.DirectionOut, Status: enums.TransactionStatusSuccess, Amount: s.Total, Counterparty: &seller},
		LedgerEntry{UserID: s.SellerID, Type: enums.TransactionTypeSettlement, Direction: enums.DirectionIn, Status: enums.TransactionStatusSuccess, Amount: sellerTake, Counterparty: &buyer},
	)
	if adminTake > 0 {
		effects = append(effects, LedgerEntry{UserID: p.AdminID, Type: enums.TransactionTypeFee, Direction: enums.DirectionIn, Status: enums.TransactionStatusSuccess, Amount: adminTake, Counterparty: &buyer})
	}

	buyerNote := enums.NotificationOrderCompleted
	if ev.CompletedBy == enums.CompletedByAuto {
		buyerNote = enums.NotificationOrderAutoCompleted
	}
	params := notifications.Params{InvoiceID: s.InvoiceID, Amount: sellerTake}
	effects = append(effects,
		Notify{Recipient: s.BuyerID, Type: buyerNote, Params: params},
		Notify{Recipient: s.SellerID, Type: enums.NotificationFundsReceived, Params: params, Amount: &sellerTake},
	)

	completedBy := ev.CompletedBy
	next := s
	next.Status = enums.OrderStatusCompleted
	next.PaymentStatus = enums.PaymentStatusSettled
	next.SellerTake = &sellerTake
	next.AdminTake = &adminTake
	next.SettledAt = at(ev.At)
	next.CompletedBy = &completedBy
	next.CompletedAt = at(ev.At)
	clearDeadlines(&next)
	return Decision{Next: next, Effects: effects}, nil
}

func dispute(s Snapshot, ev Event) (Decision, error) {
	if ev.Actor.IsSystem() || ev.Actor.UserID != s.BuyerID {
		return Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can report this order")
	}
	if s.Status != enums.OrderStatusShipped || s.PaymentStatus != enums.PaymentStatusEscrowed {
		return Decision{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot dispute order in status %s", s.Status)
	}
	if s.GracePeriodStartAt != nil && ev.At.Before(*s.GracePeriodStartAt) {
		return Decision{}, pkgerrors.New(pkgerrors.CodeStateConflict, "complaints open once the grace period starts").
			WithDetails(map[string]any{"gracePeriodStartAt": s.GracePeriodStartAt})
	}
	if ev.DisputeID == uuid.Nil {
		return Decision{}, pkgerrors.New(pkgerrors.CodeInternal, "dispute id missing")
	}

	params := notifications.Params{InvoiceID: s.InvoiceID, Reason: ev.Reason}
	disputeID := ev.DisputeID
	next := s
	next.Status = enums.OrderStatusDisputed
	next.DisputeID = &disputeID
	next.AutoCompleteAt = nil
	return Decision{
		Next: next,
		Effects: []Effect{
			Notify{Recipient: s.SellerID, Type: enums.NotificationOrderReported, Params: params},
			Notify{Recipient: s.BuyerID, Type: enums.NotificationComplaintSubmitted, Params: params},
			Notify{Channel: enums.NotificationChannelAdmin, Type: enums.NotificationNewDispute, Params: params},
		},
	}, nil
}

func resumeAfterDispute(s Snapshot, ev Event, p Policy) (Decision, error) {
	if !ev.Actor.IsSystem() && ev.Actor.Role != enums.ActorAdmin {
		return Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "only an admin can resume a disputed order")
	}
	if s.Status != enums.OrderStatusDisputed || s.PaymentStatus != enums.PaymentStatusEscrowed {
		return Decision{}, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot resume order in status %s", s.Status)
	}
	params := notifications.Params{InvoiceID: s.InvoiceID}
	next := s
	next.Status = enums.OrderStatusShipped
	next.AutoCompleteAt = at(ev.At.Add(p.RejectResumeWindow))
	next.DisputeID = nil
	return Decision{
		Next: next,
		Effects: []Effect{
			Notify{Recipient: s.BuyerID, Type: enums.NotificationDisputeRejected, Params: params},
			Notify{Recipient: s.SellerID, Type: enums.NotificationDisputeRejectedSelf, Params: params},
		},
	}, nil
}

func remind(s Snapshot, ev Event) (Decision, error) {
	if !ev.Actor.IsSystem() {
		return Decision{}, pkgerrors.New(pkgerrors.CodeForbidden, "reminders are sent by the system")
	}
	if s.Status != enums.OrderStatusShipped || s.ReminderSentAt != nil ||
		s.GracePeriodStartAt == nil || s.GracePeriodStartAt.After(ev.At) || s.AutoCompleteAt == nil {
		return noop(s)
	}
	hoursLeft := int(math.Round(s.AutoCompleteAt.Sub(ev.At).Hours()))
	if hoursLeft < 0 {
		hoursLeft = 0
	}
	next := s
	next.ReminderSentAt = at(ev.At)
	return Decision{
		Next: next,
		Effects: []Effect{Notify{
			Recipient: s.BuyerID,
			Type:      enums.NotificationGracePeriod,
			Params:    notifications.Params{InvoiceID: s.InvoiceID, HoursLeft: hoursLeft},
		}},
	}, nil
}

func clearDeadlines(o *Snapshot) {
	o.AutoCancelAt = nil
	o.ShipByAt = nil
	o.GracePeriodStartAt = nil
	o.AutoCompleteAt = nil
	o.ReminderSentAt = nil
}

func at(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
