package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/api/shared"
	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/service"
	"github.com/dvolkov/taskdesk/internal/store"
)

// TaskReader is the slice of the task service the browse surface needs.
type TaskReader interface {
	ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (*service.TaskDetail, error)
}

// TaskHandler handles task browsing HTTP requests.
type TaskHandler struct {
	tasks TaskReader
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks TaskReader) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// ListTasks handles GET /api/tasks requests. Supported query parameters:
// status (exact match, ALL or empty for no filter) and search (substring
// over title, description, client and object fields).
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter := store.TaskFilter{
		Search: r.URL.Query().Get("search"),
	}

	if raw := r.URL.Query().Get("status"); raw != "" && raw != "ALL" {
		status := domain.TaskStatus(raw)
		filter.Status = &status
	}

	tasks, err := h.tasks.ListTasks(r.Context(), filter)
	if err != nil {
		slog.Error("failed to list tasks", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, taskToResponse(task))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// GetTask handles GET /api/tasks/{id} requests, returning the task with
// its full event history.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	detail, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		if store.IsNotFoundError(err) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		slog.Error("failed to get task", "error", err, "task_id", id)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to get task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskDetailToResponse(detail))
}
