package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/RayhanLauzzadani/pasma-apps/internal/orders"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/metrics"
)

// orderSweeper is the slice of the order service the timeout jobs drive.
type orderSweeper interface {
	ListDue(ctx context.Context, kind orders.DueKind, now time.Time, after *orders.DueCursor, limit int) ([]orders.DueOrder, error)
	Cancel(ctx context.Context, actor orders.Actor, orderID uuid.UUID, reason string) (*orders.OrderDTO, error)
	Complete(ctx context.Context, actor orders.Actor, orderID uuid.UUID, by enums.CompletedBy) (*orders.OrderDTO, error)
	SendGraceReminder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type sweepStats struct {
	Processed int
	Skipped   int
	Failed    int
}

func (s sweepStats) fields() map[string]any {
	return map[string]any{
		"processed": s.Processed,
		"skipped":   s.Skipped,
		"failed":    s.Failed,
	}
}

// sweeper walks one overdue query in keyset pages and applies fn to each
// order. A failed order is logged and counted and the walk continues; the
// cursor moves past it so it is not re-selected within this run.
type sweeper struct {
	job     string
	orders  orderSweeper
	logg    *logger.Logger
	metrics *metrics.EscrowMetrics
}

func (s sweeper) each(ctx context.Context, kind orders.DueKind, now time.Time, batch int, fn func(ctx context.Context, orderID uuid.UUID) error) (sweepStats, error) {
	var (
		stats sweepStats
		errs  error
		after *orders.DueCursor
	)
	for {
		rows, err := s.orders.ListDue(ctx, kind, now, after, batch)
		if err != nil {
			return stats, multierr.Append(errs, fmt.Errorf("list %s orders: %w", kind, err))
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return stats, multierr.Append(errs, err)
			}
			err := fn(ctx, row.ID)
			switch {
			case err == nil:
				stats.Processed++
				s.metrics.IncSweepItem(s.job, "processed")
			case pkgerrors.Is(err, pkgerrors.CodeStateConflict):
				// another run or a participant moved the order first
				stats.Skipped++
				s.metrics.IncSweepItem(s.job, "skipped")
			default:
				stats.Failed++
				s.metrics.IncSweepItem(s.job, "failed")
				s.logg.Error(s.logg.WithOrderID(ctx, row.ID.String()), "sweep item failed", err)
				errs = multierr.Append(errs, fmt.Errorf("order %s: %w", row.ID, err))
			}
		}
		if len(rows) < batch {
			return stats, errs
		}
		after = rows[len(rows)-1].Cursor()
	}
}
