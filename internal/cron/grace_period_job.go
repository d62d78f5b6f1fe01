package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/RayhanLauzzadani/pasma-apps/internal/orders"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/metrics"
)

const defaultGraceBatch = 100

type GracePeriodJobParams struct {
	Logger            *logger.Logger
	Orders            orderSweeper
	Metrics           *metrics.EscrowMetrics
	Interval          time.Duration
	ReminderBatch     int
	AutoCompleteBatch int
}

// NewGracePeriodJob reminds buyers whose grace period started and settles
// shipped orders whose auto-complete time passed without a dispute.
func NewGracePeriodJob(params GracePeriodJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	reminders := params.ReminderBatch
	if reminders <= 0 {
		reminders = defaultGraceBatch
	}
	completions := params.AutoCompleteBatch
	if completions <= 0 {
		completions = defaultGraceBatch
	}
	interval := params.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	const name = "grace-period"
	return &gracePeriodJob{
		logg:        params.Logger,
		orders:      params.Orders,
		sweep:       sweeper{job: name, orders: params.Orders, logg: params.Logger, metrics: params.Metrics},
		reminders:   reminders,
		completions: completions,
		interval:    interval,
		now:         time.Now,
	}, nil
}

type gracePeriodJob struct {
	logg        *logger.Logger
	orders      orderSweeper
	sweep       sweeper
	reminders   int
	completions int
	interval    time.Duration
	now         func() time.Time
}

func (j *gracePeriodJob) Name() string { return "grace-period" }

func (j *gracePeriodJob) Interval() time.Duration { return j.interval }

func (j *gracePeriodJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error

	reminded, err := j.sweep.each(ctx, orders.DueReminder, now, j.reminders, func(ctx context.Context, orderID uuid.UUID) error {
		_, err := j.orders.SendGraceReminder(ctx, orderID)
		return err
	})
	if err != nil {
		// reminders are best effort; settlement below still runs
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "grace reminders incomplete")
	}
	j.logg.Info(j.logg.WithFields(ctx, reminded.fields()), "grace reminders sent")

	completed, err := j.sweep.each(ctx, orders.DueAutoComplete, now, j.completions, func(ctx context.Context, orderID uuid.UUID) error {
		_, err := j.orders.Complete(ctx, orders.SystemActor(), orderID, enums.CompletedByAuto)
		return err
	})
	errs = multierr.Append(errs, err)
	j.logg.Info(j.logg.WithFields(ctx, completed.fields()), "auto-complete sweep complete")
	return errs
}
