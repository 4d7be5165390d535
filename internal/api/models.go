package api

import (
	"time"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/service"
)

// TaskResponse represents the response data for a task.
type TaskResponse struct {
	ID              string     `json:"id"`
	SourceID        string     `json:"source_id"`
	SourceMessageID string     `json:"source_message_id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description,omitempty"`
	Priority        string     `json:"priority"`
	ClientName      *string    `json:"client_name,omitempty"`
	ObjectName      *string    `json:"object_name,omitempty"`
	Tags            []string   `json:"tags"`
	DueText         *string    `json:"due_text,omitempty"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	Confidence      float64    `json:"confidence"`
	Status          string     `json:"status"`
	AssigneeID      *string    `json:"assignee_id,omitempty"`
	LastRemindedAt  *time.Time `json:"last_reminded_at,omitempty"`
	RemindedCount   int        `json:"reminded_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TaskEventResponse represents one entry of a task's event history.
type TaskEventResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	OldStatus *string   `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status"`
	UserID    *string   `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskDetailResponse is a task together with its event history.
type TaskDetailResponse struct {
	TaskResponse
	Events []TaskEventResponse `json:"events"`
}

// SourceResponse represents the response data for a source.
type SourceResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ExternalID string    `json:"external_id"`
	Name       *string   `json:"name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func taskToResponse(task *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:              task.ID.String(),
		SourceID:        task.SourceID.String(),
		SourceMessageID: task.SourceMessageID,
		Title:           task.Title,
		Description:     task.Description,
		Priority:        string(task.Priority),
		ClientName:      task.ClientName,
		ObjectName:      task.ObjectName,
		Tags:            task.Tags,
		DueText:         task.DueText,
		DueAt:           task.DueAt,
		Confidence:      task.Confidence,
		Status:          string(task.Status),
		LastRemindedAt:  task.LastRemindedAt,
		RemindedCount:   task.RemindedCount,
		CreatedAt:       task.CreatedAt,
		UpdatedAt:       task.UpdatedAt,
	}

	if task.AssigneeID != nil {
		id := task.AssigneeID.String()
		resp.AssigneeID = &id
	}

	return resp
}

func taskDetailToResponse(detail *service.TaskDetail) TaskDetailResponse {
	resp := TaskDetailResponse{
		TaskResponse: taskToResponse(detail.Task),
		Events:       make([]TaskEventResponse, 0, len(detail.Events)),
	}

	for _, event := range detail.Events {
		eventResp := TaskEventResponse{
			ID:        event.ID.String(),
			Type:      string(event.Type),
			NewStatus: string(event.NewStatus),
			CreatedAt: event.CreatedAt,
		}
		if event.OldStatus != nil {
			old := string(*event.OldStatus)
			eventResp.OldStatus = &old
		}
		if event.UserID != nil {
			id := event.UserID.String()
			eventResp.UserID = &id
		}
		resp.Events = append(resp.Events, eventResp)
	}

	return resp
}

func sourceToResponse(source *domain.Source) SourceResponse {
	return SourceResponse{
		ID:         source.ID.String(),
		Type:       string(source.Type),
		ExternalID: source.ExternalID,
		Name:       source.Name,
		CreatedAt:  source.CreatedAt,
	}
}
