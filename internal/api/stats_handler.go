package api

import (
	"net/http"

	"github.com/dvolkov/taskdesk/internal/api/shared"
	"github.com/dvolkov/taskdesk/internal/ingest"
)

// CounterSource exposes the ingestion pipeline's outcome counters.
type CounterSource interface {
	Counters() ingest.ProcessorCounters
}

// FailureCounter exposes the classification failure counter.
type FailureCounter interface {
	FailureCount() int64
}

// StatsResponse aggregates pipeline counters for operational inspection.
type StatsResponse struct {
	TasksCreated           int64 `json:"tasks_created"`
	NotATask               int64 `json:"not_a_task"`
	Duplicates             int64 `json:"duplicates"`
	ExtractionFailures     int64 `json:"extraction_failures"`
	InfraFailures          int64 `json:"infra_failures"`
	ClassificationFailures int64 `json:"classification_failures"`
}

// StatsHandler handles GET /api/stats requests.
type StatsHandler struct {
	counters CounterSource
	failures FailureCounter
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(counters CounterSource, failures FailureCounter) *StatsHandler {
	return &StatsHandler{counters: counters, failures: failures}
}

// GetStats handles GET /api/stats requests.
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	c := h.counters.Counters()

	resp := StatsResponse{
		TasksCreated:       c.Created,
		NotATask:           c.NotATask,
		Duplicates:         c.Duplicates,
		ExtractionFailures: c.ExtractionFailed,
		InfraFailures:      c.InfraFailures,
	}
	if h.failures != nil {
		resp.ClassificationFailures = h.failures.FailureCount()
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
