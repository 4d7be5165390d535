package ingest

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/domain"
)

// JobStatus represents the current state of an ingestion job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobTypeInboundMessage is the only job type the pipeline currently carries.
const JobTypeInboundMessage = "inbound_message"

// Successful job outcomes. All three acknowledge the job; none triggers
// redelivery. extraction_failed covers the deliberate silent-drop semantics
// for classification failures.
const (
	OutcomeCreated          = "created"
	OutcomeNotATask         = "not_a_task"
	OutcomeDuplicate        = "duplicate"
	OutcomeExtractionFailed = "extraction_failed"
)

// InboundJob is the payload of one inbound chat message awaiting
// classification. It is created by a platform adapter and consumed by a
// worker; the queue may redeliver it after a crash, so downstream effects
// must be idempotent (the task dedup key guarantees that).
type InboundJob struct {
	Message          string             `json:"message"`
	SourceType       domain.ChannelType `json:"source_type"`
	SourceExternalID string             `json:"source_external_id"`
	SourceMessageID  string             `json:"source_message_id"`
	SourceName       *string            `json:"source_name,omitempty"`
	SenderTelegramID *string            `json:"sender_telegram_id,omitempty"`
	SenderUsername   *string            `json:"sender_username,omitempty"`
	SenderName       *string            `json:"sender_name,omitempty"`
}

// Job is a persisted queue entry wrapping an InboundJob payload.
type Job struct {
	ID        uuid.UUID
	Type      string
	Payload   InboundJob
	Status    JobStatus
	Attempts  int
	Detail    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob wraps an inbound message payload in a pending queue entry.
func NewJob(payload InboundJob) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.New(),
		Type:      JobTypeInboundMessage,
		Payload:   payload,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore defines the interface for persisting ingestion jobs. The
// persisted rows are what make the queue durable: pending and interrupted
// jobs are recovered and redelivered after a restart.
type JobStore interface {
	// SaveJob persists a job to the database.
	SaveJob(ctx context.Context, job *Job) error

	// UpdateJobStatus updates the status of a job. The detail string carries
	// the outcome for completed jobs and the error message otherwise.
	UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status JobStatus, detail string) error

	// IncrementAttempts bumps the job's attempt counter and returns the new
	// value. Used to bound infrastructure-failure redeliveries.
	IncrementAttempts(ctx context.Context, jobID uuid.UUID) (int, error)

	// GetPendingJobs retrieves jobs with "pending" status.
	// If olderThan is non-zero, only returns jobs whose last update is
	// older than the specified duration.
	GetPendingJobs(ctx context.Context, olderThan time.Duration) ([]*Job, error)

	// GetProcessingJobs retrieves jobs with "processing" status.
	// If olderThan is non-zero, only returns jobs that have been in this
	// state longer than the specified duration.
	GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]*Job, error)

	// WithTx returns a new JobStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) JobStore
}
