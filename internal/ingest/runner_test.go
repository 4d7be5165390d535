package ingest

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvolkov/taskdesk/internal/domain"
)

// mockJobStore is an in-memory JobStore for runner tests.
type mockJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{jobs: make(map[uuid.UUID]*Job)}
}

func (m *mockJobStore) SaveJob(ctx context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *job
	m.jobs[job.ID] = &saved
	return nil
}

func (m *mockJobStore) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status JobStatus, detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return errors.New("job not found")
	}
	job.Status = status
	job.Detail = detail
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *mockJobStore) IncrementAttempts(ctx context.Context, jobID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return 0, errors.New("job not found")
	}
	job.Attempts++
	return job.Attempts, nil
}

func (m *mockJobStore) GetPendingJobs(ctx context.Context, olderThan time.Duration) ([]*Job, error) {
	return m.jobsByStatus(JobStatusPending, olderThan), nil
}

func (m *mockJobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]*Job, error) {
	return m.jobsByStatus(JobStatusProcessing, olderThan), nil
}

func (m *mockJobStore) WithTx(tx *sql.Tx) JobStore {
	return m
}

func (m *mockJobStore) jobsByStatus(status JobStatus, olderThan time.Duration) []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var out []*Job
	for _, job := range m.jobs {
		if job.Status != status {
			continue
		}
		if olderThan > 0 && !job.UpdatedAt.Before(cutoff) {
			continue
		}
		copied := *job
		out = append(out, &copied)
	}
	return out
}

func (m *mockJobStore) snapshot(jobID uuid.UUID) Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[jobID]
}

func testRunnerConfig() RunnerConfig {
	cfg := DefaultRunnerConfig()
	cfg.WorkerCount = 2
	cfg.RetryDelay = 0
	cfg.StuckJobCheckInterval = time.Hour
	return cfg
}

func TestRunnerProcessesSubmittedJob(t *testing.T) {
	jobStore := newMockJobStore()
	creator := &stubCreator{task: &domain.Task{ID: uuid.New(), Title: "Call Ivanov"}}
	processor := NewProcessor(&stubExtractor{candidate: acceptedCandidate()}, creator, testLogger())

	runner := NewRunner(jobStore, processor, testRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	payload := InboundJob{
		Message:          "call Ivanov about the cabinet",
		SourceType:       domain.ChannelTelegram,
		SourceExternalID: "123",
		SourceMessageID:  "456",
	}
	require.NoError(t, runner.Submit(context.Background(), payload))

	var jobID uuid.UUID
	jobStore.mu.Lock()
	for id := range jobStore.jobs {
		jobID = id
	}
	jobStore.mu.Unlock()

	require.Eventually(t, func() bool {
		return jobStore.snapshot(jobID).Status == JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	job := jobStore.snapshot(jobID)
	assert.Equal(t, OutcomeCreated, job.Detail)
	assert.Equal(t, 1, creator.callCount())
}

func TestRunnerRecoversUnfinishedJobs(t *testing.T) {
	jobStore := newMockJobStore()

	pending := NewJob(InboundJob{
		Message:          "pending message",
		SourceType:       domain.ChannelTelegram,
		SourceExternalID: "1",
		SourceMessageID:  "10",
	})
	require.NoError(t, jobStore.SaveJob(context.Background(), pending))

	// Simulates a job interrupted mid-delivery by a previous run.
	interrupted := NewJob(InboundJob{
		Message:          "interrupted message",
		SourceType:       domain.ChannelTelegram,
		SourceExternalID: "1",
		SourceMessageID:  "11",
	})
	interrupted.Status = JobStatusProcessing
	require.NoError(t, jobStore.SaveJob(context.Background(), interrupted))

	creator := &stubCreator{task: &domain.Task{ID: uuid.New(), Title: "Recovered"}}
	processor := NewProcessor(&stubExtractor{candidate: acceptedCandidate()}, creator, testLogger())

	runner := NewRunner(jobStore, processor, testRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	require.Eventually(t, func() bool {
		return jobStore.snapshot(pending.ID).Status == JobStatusCompleted &&
			jobStore.snapshot(interrupted.ID).Status == JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, creator.callCount())
}

func TestRunnerReclaimsParkedPendingJob(t *testing.T) {
	jobStore := newMockJobStore()
	creator := &stubCreator{task: &domain.Task{ID: uuid.New(), Title: "Parked"}}
	processor := NewProcessor(&stubExtractor{candidate: acceptedCandidate()}, creator, testLogger())

	cfg := testRunnerConfig()
	cfg.StuckJobCheckInterval = 20 * time.Millisecond

	runner := NewRunner(jobStore, processor, cfg, testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	// A pending row the channel never saw, as left behind by a submit
	// against a full queue. It must be delivered without a restart.
	parked := NewJob(InboundJob{
		Message:          "parked message",
		SourceType:       domain.ChannelTelegram,
		SourceExternalID: "1",
		SourceMessageID:  "14",
	})
	parked.UpdatedAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, jobStore.SaveJob(context.Background(), parked))

	require.Eventually(t, func() bool {
		return jobStore.snapshot(parked.ID).Status == JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, OutcomeCreated, jobStore.snapshot(parked.ID).Detail)
}

func TestRunnerBoundsRedeliveryAttempts(t *testing.T) {
	jobStore := newMockJobStore()

	dbDown := errors.New("connection refused")
	creator := &stubCreator{err: dbDown}
	processor := NewProcessor(&stubExtractor{candidate: acceptedCandidate()}, creator, testLogger())

	cfg := testRunnerConfig()
	cfg.MaxAttempts = 3

	runner := NewRunner(jobStore, processor, cfg, testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	payload := InboundJob{
		Message:          "doomed message",
		SourceType:       domain.ChannelTelegram,
		SourceExternalID: "1",
		SourceMessageID:  "12",
	}
	require.NoError(t, runner.Submit(context.Background(), payload))

	var jobID uuid.UUID
	jobStore.mu.Lock()
	for id := range jobStore.jobs {
		jobID = id
	}
	jobStore.mu.Unlock()

	require.Eventually(t, func() bool {
		return jobStore.snapshot(jobID).Status == JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	job := jobStore.snapshot(jobID)
	assert.Equal(t, cfg.MaxAttempts, job.Attempts)
	assert.Contains(t, job.Detail, "connection refused")
}

func TestRunnerNotATaskCompletesJob(t *testing.T) {
	jobStore := newMockJobStore()
	creator := &stubCreator{}
	processor := NewProcessor(&stubExtractor{candidate: nil}, creator, testLogger())

	runner := NewRunner(jobStore, processor, testRunnerConfig(), testLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	payload := InboundJob{
		Message:          "good morning everyone",
		SourceType:       domain.ChannelTelegram,
		SourceExternalID: "1",
		SourceMessageID:  "13",
	}
	require.NoError(t, runner.Submit(context.Background(), payload))

	var jobID uuid.UUID
	jobStore.mu.Lock()
	for id := range jobStore.jobs {
		jobID = id
	}
	jobStore.mu.Unlock()

	require.Eventually(t, func() bool {
		return jobStore.snapshot(jobID).Status == JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, OutcomeNotATask, jobStore.snapshot(jobID).Detail)
	assert.Zero(t, creator.callCount())
}
