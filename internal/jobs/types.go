// Package jobs defines the asynchronous persistence boundary. Local
// mutations complete synchronously against the in-memory store; a SyncJob
// then mirrors the affected entity to the hosted store. Failures are
// surfaced, never auto-rolled-back: local state stays authoritative until
// the next out-of-band refresh replaces it wholesale.
package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// EntityKind names the entity a sync job carries.
type EntityKind string

const (
	EntityAccount       EntityKind = "account"
	EntityCard          EntityKind = "card"
	EntityTransaction   EntityKind = "transaction"
	EntityRecurringItem EntityKind = "recurring_item"
	EntityLedgerEvent   EntityKind = "ledger_event"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed permanently.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// SyncJob mirrors one entity snapshot to the hosted store. Payload is the
// JSON-encoded entity at publish time; later snapshots of the same entity
// simply win (last-write-wins, no merging).
type SyncJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// Kind names the entity type the payload decodes into.
	Kind EntityKind `json:"kind"`

	// EntityID is the id of the entity being mirrored.
	EntityID string `json:"entity_id"`

	// Payload is the JSON snapshot of the entity.
	Payload json.RawMessage `json:"payload"`

	// Delete marks a hard removal instead of an upsert (e.g. an unwound
	// consolidated invoice transaction).
	Delete bool `json:"delete,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// NewSyncJob builds a job carrying the JSON snapshot of one entity.
func NewSyncJob(kind EntityKind, entityID string, entity interface{}) (*SyncJob, error) {
	payload, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	return &SyncJob{
		Kind:     kind,
		EntityID: entityID,
		Payload:  payload,
	}, nil
}

// Publisher defines the interface for publishing sync jobs to a queue.
// This abstraction allows for different queue implementations (in-memory,
// Cloud Tasks, Pub/Sub).
type Publisher interface {
	// PublishSync enqueues an entity snapshot for mirroring.
	PublishSync(ctx context.Context, job *SyncJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue. The handler is called
	// for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one sync job. A returned error marks the job for
// retry until MaxRetries is exhausted.
type JobHandler func(ctx context.Context, job *SyncJob) error

// JobStore tracks job state so failed mirrors remain visible.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *SyncJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*SyncJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*SyncJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// EntityID filters jobs by the mirrored entity.
	EntityID string

	// Status filters jobs by status.
	Status JobStatus

	// Limit caps the number of returned jobs (0 means no cap).
	Limit int

	// Offset skips the first N matching jobs.
	Offset int
}
