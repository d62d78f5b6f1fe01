package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeOutboxRetentionRepo struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func TestOutboxRetentionJobUsesCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 3, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{deleted: 12}
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: testLogger(), Repository: repo, Retention: 14})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-14 * 24 * time.Hour); !repo.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoff)
	}
}

func TestOutboxRetentionJobPropagatesErrors(t *testing.T) {
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     testLogger(),
		Repository: &fakeOutboxRetentionRepo{err: errors.New("db down")},
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
