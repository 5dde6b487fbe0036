package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carteira-app/carteira/internal/jobs"
)

func waitForStatus(t *testing.T, store jobs.JobStore, jobID string, want jobs.JobStatus) *jobs.SyncJob {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s never reached status %q (last seen: %+v)", jobID, want, job)
	return nil
}

func TestQueuePublishAndProcess(t *testing.T) {
	store := NewStore()
	q := NewQueue(16, store)
	defer q.Close()

	var mu sync.Mutex
	var handled []*jobs.SyncJob
	handler := func(ctx context.Context, job *jobs.SyncJob) error {
		mu.Lock()
		handled = append(handled, job)
		mu.Unlock()
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job, err := jobs.NewSyncJob(jobs.EntityAccount, "acct-1", map[string]string{"account_id": "acct-1"})
	if err != nil {
		t.Fatalf("NewSyncJob: %v", err)
	}
	if err := q.PublishSync(context.Background(), job); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("PublishSync did not assign a job id")
	}
	if job.MaxRetries != 3 {
		t.Errorf("default MaxRetries = %d, want 3", job.MaxRetries)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.Error != "" {
		t.Errorf("completed job carries error %q", done.Error)
	}
	if done.CompletedAt == nil {
		t.Error("completed job has nil CompletedAt")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 1 {
		t.Fatalf("handler called %d times, want 1", len(handled))
	}
	if handled[0].EntityID != "acct-1" || handled[0].Kind != jobs.EntityAccount {
		t.Errorf("handler saw job %+v", handled[0])
	}
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	store := NewStore()
	q := NewQueue(16, store)
	defer q.Close()

	var mu sync.Mutex
	attempts := 0
	handler := func(ctx context.Context, job *jobs.SyncJob) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient mirror failure")
		}
		return nil
	}

	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job, err := jobs.NewSyncJob(jobs.EntityTransaction, "tx-1", map[string]string{"transaction_id": "tx-1"})
	if err != nil {
		t.Fatalf("NewSyncJob: %v", err)
	}
	if err := q.PublishSync(context.Background(), job); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", done.RetryCount)
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("handler called %d times, want 2", attempts)
	}
}

func TestQueuePublishAfterClose(t *testing.T) {
	q := NewQueue(1, NewStore())
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	job, _ := jobs.NewSyncJob(jobs.EntityCard, "card-1", map[string]string{"card_id": "card-1"})
	if err := q.PublishSync(context.Background(), job); err == nil {
		t.Fatal("PublishSync on a closed queue returned nil error")
	}
}

func TestJobStoreListFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i, st := range []jobs.JobStatus{jobs.JobStatusCompleted, jobs.JobStatusFailed, jobs.JobStatusCompleted} {
		job, err := jobs.NewSyncJob(jobs.EntityLedgerEvent, "evt-1", map[string]int{"n": i})
		if err != nil {
			t.Fatalf("NewSyncJob: %v", err)
		}
		job.JobID = string(rune('a' + i))
		job.Status = st
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	completed, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(completed) != 2 {
		t.Errorf("completed jobs = %d, want 2", len(completed))
	}

	byEntity, err := store.ListJobs(ctx, jobs.JobFilter{EntityID: "evt-1", Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(byEntity) != 1 {
		t.Errorf("limited listing = %d jobs, want 1", len(byEntity))
	}
}
