package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RayhanLauzzadani/pasma-apps/internal/orders"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/metrics"
)

const (
	defaultTimeoutBatch = 300

	ReasonAcceptanceTimeout = "acceptance timeout"
	ReasonShippingTimeout   = "shipping timeout"
)

// TimeoutJobParams configure the unaccepted and unshipped order sweeps.
type TimeoutJobParams struct {
	Logger    *logger.Logger
	Orders    orderSweeper
	Metrics   *metrics.EscrowMetrics
	Interval  time.Duration
	BatchSize int
}

// NewUnacceptedOrdersJob cancels PLACED orders whose acceptance window lapsed.
func NewUnacceptedOrdersJob(params TimeoutJobParams) (Job, error) {
	return newTimeoutJob("unaccepted-orders", orders.DueUnaccepted, ReasonAcceptanceTimeout, params)
}

// NewUnshippedOrdersJob cancels ACCEPTED orders whose shipping window lapsed.
func NewUnshippedOrdersJob(params TimeoutJobParams) (Job, error) {
	return newTimeoutJob("unshipped-orders", orders.DueUnshipped, ReasonShippingTimeout, params)
}

func newTimeoutJob(name string, kind orders.DueKind, reason string, params TimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultTimeoutBatch
	}
	interval := params.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &timeoutJob{
		name:     name,
		kind:     kind,
		reason:   reason,
		batch:    batch,
		interval: interval,
		logg:     params.Logger,
		sweep:    sweeper{job: name, orders: params.Orders, logg: params.Logger, metrics: params.Metrics},
		orders:   params.Orders,
		now:      time.Now,
	}, nil
}

type timeoutJob struct {
	name     string
	kind     orders.DueKind
	reason   string
	batch    int
	interval time.Duration
	logg     *logger.Logger
	sweep    sweeper
	orders   orderSweeper
	now      func() time.Time
}

func (j *timeoutJob) Name() string { return j.name }

func (j *timeoutJob) Interval() time.Duration { return j.interval }

func (j *timeoutJob) Run(ctx context.Context) error {
	stats, err := j.sweep.each(ctx, j.kind, j.now().UTC(), j.batch, func(ctx context.Context, orderID uuid.UUID) error {
		_, err := j.orders.Cancel(ctx, orders.SystemActor(), orderID, j.reason)
		return err
	})
	j.logg.Info(j.logg.WithFields(ctx, stats.fields()), j.name+" sweep complete")
	return err
}
