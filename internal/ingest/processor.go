package ingest

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/extraction"
	"github.com/dvolkov/taskdesk/internal/store"
)

// TaskCreator defines the interface for turning an accepted candidate into a
// persisted task. A duplicate dedup-key outcome is reported as
// store.ErrDuplicateTask; anything else is an infrastructure failure.
type TaskCreator interface {
	CreateTask(ctx context.Context, job InboundJob, candidate *domain.TaskCandidate) (*domain.Task, error)
}

// ProcessorCounters exposes running totals per job outcome.
type ProcessorCounters struct {
	Created          int64 `json:"created"`
	NotATask         int64 `json:"not_a_task"`
	Duplicates       int64 `json:"duplicates"`
	ExtractionFailed int64 `json:"extraction_failed"`
	InfraFailures    int64 `json:"infra_failures"`
}

// Processor handles a single ingestion job: classify the message, and when a
// candidate survives the gate, create the task. Handlers share no mutable
// state beyond these counters; all coordination happens in the task store.
type Processor struct {
	extractor extraction.Extractor
	tasks     TaskCreator
	logger    *slog.Logger

	created          atomic.Int64
	notATask         atomic.Int64
	duplicates       atomic.Int64
	extractionFailed atomic.Int64
	infraFailures    atomic.Int64
}

// NewProcessor creates a job processor.
func NewProcessor(extractor extraction.Extractor, tasks TaskCreator, logger *slog.Logger) *Processor {
	return &Processor{
		extractor: extractor,
		tasks:     tasks,
		logger:    logger.With("component", "ingest_processor"),
	}
}

// Process handles one job. The returned outcome acknowledges the job; a
// non-nil error means an infrastructure failure and asks the queue to
// redeliver. Classification failures and duplicates are successful outcomes
// on purpose: neither must block the pipeline.
func (p *Processor) Process(ctx context.Context, job *Job) (string, error) {
	payload := job.Payload

	msgCtx := extraction.MessageContext{}
	if payload.SenderName != nil {
		msgCtx.SenderName = *payload.SenderName
	}
	if payload.SourceName != nil {
		msgCtx.ChatName = *payload.SourceName
	}

	candidate, err := p.extractor.ExtractTask(ctx, payload.Message, msgCtx)
	if err != nil {
		// Deliberate silent drop: a transient classifier outage is treated
		// the same as "not a task". The counter keeps the loss visible.
		p.extractionFailed.Add(1)
		p.logger.WarnContext(ctx, "extraction failed, dropping message",
			"job_id", job.ID,
			"source_type", payload.SourceType,
			"source_external_id", payload.SourceExternalID,
			"error", err)
		return OutcomeExtractionFailed, nil
	}

	if candidate == nil {
		p.notATask.Add(1)
		p.logger.DebugContext(ctx, "not a task, skipping", "job_id", job.ID)
		return OutcomeNotATask, nil
	}

	task, err := p.tasks.CreateTask(ctx, payload, candidate)
	if err != nil {
		if store.IsDuplicateError(err) {
			p.duplicates.Add(1)
			p.logger.DebugContext(ctx, "task already exists for message, skipping",
				"job_id", job.ID,
				"source_message_id", payload.SourceMessageID)
			return OutcomeDuplicate, nil
		}

		p.infraFailures.Add(1)
		return "", err
	}

	p.created.Add(1)
	p.logger.InfoContext(ctx, "task created from message",
		"job_id", job.ID,
		"task_id", task.ID,
		"title", task.Title)
	return OutcomeCreated, nil
}

// Counters returns a snapshot of the processor's outcome totals.
func (p *Processor) Counters() ProcessorCounters {
	return ProcessorCounters{
		Created:          p.created.Load(),
		NotATask:         p.notATask.Load(),
		Duplicates:       p.duplicates.Load(),
		ExtractionFailed: p.extractionFailed.Load(),
		InfraFailures:    p.infraFailures.Load(),
	}
}
