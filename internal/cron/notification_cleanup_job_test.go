package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
)

type fakePurger struct {
	olderThan time.Duration
	called    int
	deleted   int64
	err       error
}

func (f *fakePurger) PurgeRead(_ context.Context, olderThan time.Duration) (int64, error) {
	f.called++
	f.olderThan = olderThan
	return f.deleted, f.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestNotificationCleanupJobPurgesReadRows(t *testing.T) {
	purger := &fakePurger{deleted: 42}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: testLogger(), Purger: purger})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	if job.Interval() != 24*time.Hour {
		t.Fatalf("unexpected interval %s", job.Interval())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if purger.called != 1 {
		t.Fatalf("expected purger called once, got %d", purger.called)
	}
	if purger.olderThan != 90*24*time.Hour {
		t.Fatalf("expected 90 day retention, got %s", purger.olderThan)
	}
}

func TestNotificationCleanupJobPropagatesErrors(t *testing.T) {
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:    testLogger(),
		Purger:    &fakePurger{err: errors.New("boom")},
		Retention: 7,
	})
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
