package disputes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/internal/orders"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/metrics"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox/payloads"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/pagination"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/tracing"
)

// Service opens buyer complaints and applies admin rulings.
type Service interface {
	Create(ctx context.Context, actor orders.Actor, input CreateInput) (*DisputeDTO, error)
	Resolve(ctx context.Context, actor orders.Actor, input ResolveInput) (*DisputeDTO, error)
	Get(ctx context.Context, actor orders.Actor, disputeID uuid.UUID) (*DisputeDTO, error)
	ListOpen(ctx context.Context, actor orders.Actor, params pagination.Params) (*ListResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type roleChecker interface {
	HasRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (bool, error)
}

type ServiceParams struct {
	Repo          Repository
	Machine       *orders.Machine
	Tx            txRunner
	Roles         roleChecker
	Outbox        outbox.Emitter
	Metrics       *metrics.EscrowMetrics
	Logger        *logger.Logger
	RetryAttempts int
}

type service struct {
	repo     Repository
	machine  *orders.Machine
	tx       txRunner
	roles    roleChecker
	outbox   outbox.Emitter
	metrics  *metrics.EscrowMetrics
	logg     *logger.Logger
	attempts int
	now      func() time.Time
}

func NewService(p ServiceParams) (Service, error) {
	switch {
	case p.Repo == nil:
		return nil, fmt.Errorf("disputes repository required")
	case p.Machine == nil:
		return nil, fmt.Errorf("order machine required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Roles == nil:
		return nil, fmt.Errorf("role checker required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case p.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     p.Repo,
		machine:  p.Machine,
		tx:       p.Tx,
		roles:    p.Roles,
		outbox:   p.Outbox,
		metrics:  p.Metrics,
		logg:     p.Logger,
		attempts: p.RetryAttempts,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, actor orders.Actor, input CreateInput) (*DisputeDTO, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	evidence := make([]string, 0, len(input.Evidence))
	for _, ref := range input.Evidence {
		if ref = strings.TrimSpace(ref); ref != "" {
			evidence = append(evidence, ref)
		}
	}
	if len(evidence) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "evidence is required")
	}
	if !HasVideo(evidence) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "evidence must include a video (.mp4, .mov, .avi, .webm)")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	ctx = s.logg.WithOrderID(ctx, input.OrderID.String())
	ctx, span := tracing.StartSpan(ctx, "disputes.create", tracing.OrderID(input.OrderID.String()))
	var created models.Dispute
	err := db.RunWithRetry(ctx, s.retryPolicy("dispute"), func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			order, err := s.machine.Load(ctx, tx, input.OrderID)
			if err != nil {
				return err
			}
			if order.BuyerID != actor.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer can report this order")
			}
			repo := s.repo.WithTx(tx)
			active, err := repo.FindActiveByOrder(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup active dispute")
			}
			if active != nil {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already has an open dispute").
					WithDetails(map[string]any{"disputeId": active.ID})
			}

			now := s.now().UTC()
			created = models.Dispute{
				ID:          uuid.New(),
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				SellerID:    order.SellerID,
				StoreID:     order.StoreID,
				InvoiceID:   order.InvoiceID,
				Reason:      reason,
				Description: strings.TrimSpace(input.Description),
				Evidence:    pq.StringArray(evidence),
				Status:      enums.DisputeStatusOpen,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := repo.Create(ctx, &created); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already has an open dispute")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create dispute")
			}

			if _, err := s.machine.ApplyTo(ctx, tx, *order, orders.Event{
				Kind:      orders.EventDispute,
				Actor:     actor,
				At:        now,
				Reason:    reason,
				DisputeID: created.ID,
			}); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventDisputeOpened,
				AggregateType: enums.AggregateDispute,
				AggregateID:   created.ID,
				Actor:         &outbox.ActorRef{UserID: &actor.UserID, Role: string(enums.ActorBuyer)},
				OccurredAt:    now,
				Data: payloads.DisputeOpenedEvent{
					DisputeID: created.ID,
					OrderID:   order.ID,
					BuyerID:   order.BuyerID,
					SellerID:  order.SellerID,
					Reason:    reason,
				},
			})
		})
	})
	tracing.End(span, err)
	s.metrics.IncTransition("dispute", outcome(err))
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithDisputeID(ctx, created.ID.String()), "dispute opened")
	dto := toDTO(created)
	return &dto, nil
}

func (s *service) Resolve(ctx context.Context, actor orders.Actor, input ResolveInput) (*DisputeDTO, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	resolution, err := enums.ParseDisputeResolution(strings.TrimSpace(input.Resolution))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "resolution must be refund or reject")
	}
	notes := strings.TrimSpace(input.AdminNotes)

	ctx = s.logg.WithDisputeID(ctx, input.DisputeID.String())
	ctx, span := tracing.StartSpan(ctx, "disputes.resolve",
		tracing.DisputeID(input.DisputeID.String()),
		tracing.Event(string(resolution)),
	)
	var result models.Dispute
	err = db.RunWithRetry(ctx, s.retryPolicy("resolve"), func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			dispute, err := repo.FindByID(ctx, input.DisputeID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load dispute")
			}
			if dispute == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
			}
			if !dispute.Status.IsActive() {
				if dispute.Resolution != nil && *dispute.Resolution == resolution {
					result = *dispute
					return nil
				}
				return pkgerrors.Newf(pkgerrors.CodeStateConflict, "dispute already closed as %s", dispute.Status)
			}

			now := s.now().UTC()
			closure := Closure{
				Resolution: resolution,
				AdminNotes: notes,
				ResolvedBy: actor.UserID,
				ResolvedAt: now,
			}
			switch resolution {
			case enums.DisputeResolutionRefund:
				closure.Status = enums.DisputeStatusResolved
				reason := notes
				if reason == "" {
					reason = dispute.Reason
				}
				_, err = s.machine.Apply(ctx, tx, dispute.OrderID, orders.Event{
					Kind:       orders.EventCancel,
					Actor:      orders.SystemActor(),
					At:         now,
					Reason:     "Dispute approved: " + reason,
					ViaDispute: true,
				})
			case enums.DisputeResolutionReject:
				closure.Status = enums.DisputeStatusRejected
				_, err = s.machine.Apply(ctx, tx, dispute.OrderID, orders.Event{
					Kind:  orders.EventResumeAfterDispute,
					Actor: orders.Actor{UserID: actor.UserID, Role: enums.ActorAdmin},
					At:    now,
				})
			}
			if err != nil {
				return err
			}
			if err := repo.Close(ctx, dispute.ID, closure); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close dispute")
			}

			resolvedBy := actor.UserID
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventDisputeResolved,
				AggregateType: enums.AggregateDispute,
				AggregateID:   dispute.ID,
				Actor:         &outbox.ActorRef{UserID: &resolvedBy, Role: string(enums.ActorAdmin)},
				OccurredAt:    now,
				Data: payloads.DisputeResolvedEvent{
					DisputeID:  dispute.ID,
					OrderID:    dispute.OrderID,
					Resolution: resolution,
					Status:     closure.Status,
					ResolvedBy: &resolvedBy,
				},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue dispute event")
			}

			result = *dispute
			result.Status = closure.Status
			result.Resolution = &resolution
			result.AdminNotes = notes
			result.ResolvedBy = &resolvedBy
			result.ResolvedAt = &now
			return nil
		})
	})
	tracing.End(span, err)
	s.metrics.IncTransition("resolve_"+string(resolution), outcome(err))
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "resolution", resolution), "dispute resolved")
	dto := toDTO(result)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actor orders.Actor, disputeID uuid.UUID) (*DisputeDTO, error) {
	dispute, err := s.repo.FindByID(ctx, disputeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load dispute")
	}
	if dispute == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
	}
	if actor.UserID != dispute.BuyerID && actor.UserID != dispute.SellerID {
		if err := s.requireAdmin(ctx, actor); err != nil {
			return nil, err
		}
	}
	dto := toDTO(*dispute)
	return &dto, nil
}

func (s *service) ListOpen(ctx context.Context, actor orders.Actor, params pagination.Params) (*ListResult, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListOpen(ctx, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list disputes")
	}
	page, next := pagination.Page(rows, limit, func(d models.Dispute) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	})
	out := make([]DisputeDTO, 0, len(page))
	for _, d := range page {
		out = append(out, toDTO(d))
	}
	return &ListResult{Disputes: out, NextCursor: next}, nil
}

func (s *service) requireAdmin(ctx context.Context, actor orders.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	ok, err := s.roles.HasRole(ctx, actor.UserID, enums.UserRoleAdmin)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load roles")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}

func (s *service) retryPolicy(op string) db.RetryPolicy {
	return db.RetryPolicy{
		Attempts: s.attempts,
		OnRetry: func(int, error) {
			s.metrics.IncRetry(op)
		},
	}
}

func outcome(err error) string {
	if err != nil {
		return string(pkgerrors.CodeOf(err))
	}
	return "applied"
}
