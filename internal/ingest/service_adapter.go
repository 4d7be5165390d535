package ingest

import (
	"context"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/service"
)

// CandidateCreator is the slice of the service layer the adapter needs.
// This breaks the dependency between the ingest and service packages: the
// service layer never imports ingest.
type CandidateCreator interface {
	CreateTask(ctx context.Context, in service.CreateTaskInput) (*domain.Task, error)
}

// ServiceAdapter adapts the task service to the TaskCreator interface
// consumed by the job processor.
type ServiceAdapter struct {
	svc CandidateCreator
}

// NewServiceAdapter creates a new ServiceAdapter.
func NewServiceAdapter(svc CandidateCreator) *ServiceAdapter {
	return &ServiceAdapter{svc: svc}
}

// CreateTask converts the job payload into a service-level creation request.
func (a *ServiceAdapter) CreateTask(ctx context.Context, job InboundJob, candidate *domain.TaskCandidate) (*domain.Task, error) {
	return a.svc.CreateTask(ctx, service.CreateTaskInput{
		Candidate:        candidate,
		SourceType:       job.SourceType,
		SourceExternalID: job.SourceExternalID,
		SourceMessageID:  job.SourceMessageID,
		SourceName:       job.SourceName,
		SenderTelegramID: job.SenderTelegramID,
		SenderUsername:   job.SenderUsername,
		SenderName:       job.SenderName,
	})
}
