package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
)

const notificationRetentionDays = 90

type NotificationCleanupJobParams struct {
	Logger    *logger.Logger
	Purger    readNotificationPurger
	Retention int
	Interval  time.Duration
}

type readNotificationPurger interface {
	PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error)
}

// NewNotificationCleanupJob deletes read notifications past the retention window.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Purger == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = notificationRetentionDays
	}
	interval := params.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		purger:    params.Purger,
		retention: retention,
		interval:  interval,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	purger    readNotificationPurger
	retention int
	interval  time.Duration
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Interval() time.Duration { return j.interval }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	deleted, err := j.purger.PurgeRead(ctx, time.Duration(j.retention)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
