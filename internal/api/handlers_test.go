package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/ingest"
	"github.com/dvolkov/taskdesk/internal/service"
	"github.com/dvolkov/taskdesk/internal/store"
)

type mockTaskReader struct {
	listFn func(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
	getFn  func(ctx context.Context, id uuid.UUID) (*service.TaskDetail, error)
}

func (m *mockTaskReader) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	return m.listFn(ctx, filter)
}

func (m *mockTaskReader) GetTask(ctx context.Context, id uuid.UUID) (*service.TaskDetail, error) {
	return m.getFn(ctx, id)
}

type mockSourceManager struct {
	listFn   func(ctx context.Context) ([]*domain.Source, error)
	createFn func(ctx context.Context, channel domain.ChannelType, externalID string, name *string) (*domain.Source, error)
}

func (m *mockSourceManager) ListSources(ctx context.Context) ([]*domain.Source, error) {
	return m.listFn(ctx)
}

func (m *mockSourceManager) CreateSource(ctx context.Context, channel domain.ChannelType, externalID string, name *string) (*domain.Source, error) {
	return m.createFn(ctx, channel, externalID, name)
}

type mockSubmitter struct {
	jobs []ingest.InboundJob
	err  error
}

func (m *mockSubmitter) Submit(ctx context.Context, payload ingest.InboundJob) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, payload)
	return nil
}

func apiTask() *domain.Task {
	now := time.Now().UTC()
	return &domain.Task{
		ID:              uuid.New(),
		SourceID:        uuid.New(),
		SourceMessageID: "100",
		Title:           "Call the client",
		Priority:        domain.TaskPriorityNormal,
		Tags:            []string{},
		Confidence:      0.9,
		Status:          domain.TaskStatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestListTasksFilters(t *testing.T) {
	var captured store.TaskFilter
	reader := &mockTaskReader{
		listFn: func(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
			captured = filter
			return []*domain.Task{apiTask()}, nil
		},
	}
	handler := NewTaskHandler(reader)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks?status=NEW&search=client", nil)
	rec := httptest.NewRecorder()
	handler.ListTasks(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured.Status)
	assert.Equal(t, domain.TaskStatusNew, *captured.Status)
	assert.Equal(t, "client", captured.Search)

	var resp []TaskResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Call the client", resp[0].Title)
}

func TestListTasksAllStatusMeansNoFilter(t *testing.T) {
	var captured store.TaskFilter
	reader := &mockTaskReader{
		listFn: func(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
			captured = filter
			return nil, nil
		},
	}
	handler := NewTaskHandler(reader)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks?status=ALL", nil)
	rec := httptest.NewRecorder()
	handler.ListTasks(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, captured.Status)
}

func TestGetTask(t *testing.T) {
	task := apiTask()
	reader := &mockTaskReader{
		getFn: func(ctx context.Context, id uuid.UUID) (*service.TaskDetail, error) {
			if id != task.ID {
				return nil, store.ErrTaskNotFound
			}
			return &service.TaskDetail{Task: task}, nil
		},
	}

	router := chi.NewRouter()
	router.Get("/api/tasks/{id}", NewTaskHandler(reader).GetTask)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+task.ID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TaskDetailResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, task.ID.String(), resp.ID)
	assert.NotNil(t, resp.Events)
}

func TestGetTaskBadAndMissingID(t *testing.T) {
	reader := &mockTaskReader{
		getFn: func(ctx context.Context, id uuid.UUID) (*service.TaskDetail, error) {
			return nil, store.ErrTaskNotFound
		},
	}

	router := chi.NewRouter()
	router.Get("/api/tasks/{id}", NewTaskHandler(reader).GetTask)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/tasks/"+uuid.NewString(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSource(t *testing.T) {
	manager := &mockSourceManager{
		createFn: func(ctx context.Context, channel domain.ChannelType, externalID string, name *string) (*domain.Source, error) {
			source, err := domain.NewSource(channel, externalID, name)
			if err != nil {
				return nil, err
			}
			return source, nil
		},
	}
	handler := NewSourceHandler(manager)

	body := bytes.NewBufferString(`{"type":"TELEGRAM","external_id":"-100123","name":"Orders chat"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sources", body)
	rec := httptest.NewRecorder()
	handler.CreateSource(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SourceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "TELEGRAM", resp.Type)
	assert.Equal(t, "-100123", resp.ExternalID)
	require.NotNil(t, resp.Name)
	assert.Equal(t, "Orders chat", *resp.Name)
}

func TestCreateSourceValidation(t *testing.T) {
	handler := NewSourceHandler(&mockSourceManager{})

	cases := []struct {
		name string
		body string
	}{
		{"unknown channel", `{"type":"SLACK","external_id":"1"}`},
		{"missing external id", `{"type":"TELEGRAM"}`},
		{"not json", `nope`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/sources", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			handler.CreateSource(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateSourceConflict(t *testing.T) {
	manager := &mockSourceManager{
		createFn: func(ctx context.Context, channel domain.ChannelType, externalID string, name *string) (*domain.Source, error) {
			return nil, store.ErrDuplicate
		},
	}
	handler := NewSourceHandler(manager)

	body := bytes.NewBufferString(`{"type":"TELEGRAM","external_id":"-100123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sources", body)
	rec := httptest.NewRecorder()
	handler.CreateSource(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWazzupWebhookIncomingMessage(t *testing.T) {
	submitter := &mockSubmitter{}
	handler := NewWazzupHandler(submitter)

	body := bytes.NewBufferString(`{
		"event": "message",
		"data": {
			"messageId": "wz-1",
			"chatId": "79991234567",
			"chatType": "whatsapp",
			"senderId": "79991234567",
			"senderName": "Ivan",
			"text": "replace the cabinet door",
			"direction": "incoming"
		}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/wazzup/webhook", body)
	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, submitter.jobs, 1)

	job := submitter.jobs[0]
	assert.Equal(t, domain.ChannelWazzup, job.SourceType)
	assert.Equal(t, "79991234567", job.SourceExternalID)
	assert.Equal(t, "wz-1", job.SourceMessageID)
	assert.Equal(t, "replace the cabinet door", job.Message)
	require.NotNil(t, job.SourceName)
	assert.Equal(t, "WhatsApp (Ivan)", *job.SourceName)
}

func TestWazzupWebhookIgnoresNonMessages(t *testing.T) {
	submitter := &mockSubmitter{}
	handler := NewWazzupHandler(submitter)

	cases := []struct {
		name string
		body string
	}{
		{"outgoing message", `{"event":"message","data":{"messageId":"1","chatId":"2","text":"hi","direction":"outgoing"}}`},
		{"status event", `{"event":"messageStatus","data":{"messageId":"1","chatId":"2","direction":"incoming"}}`},
		{"empty text", `{"event":"message","data":{"messageId":"1","chatId":"2","direction":"incoming"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/wazzup/webhook", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			handler.HandleWebhook(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	assert.Empty(t, submitter.jobs)
}

func TestWazzupWebhookSubmitFailure(t *testing.T) {
	submitter := &mockSubmitter{err: errors.New("db gone")}
	handler := NewWazzupHandler(submitter)

	body := bytes.NewBufferString(`{"event":"message","data":{"messageId":"1","chatId":"2","text":"hi","direction":"incoming"}}`)
	req := httptest.NewRequest(http.MethodPost, "/wazzup/webhook", body)
	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type staticCounters struct {
	counters ingest.ProcessorCounters
	failures int64
}

func (s *staticCounters) Counters() ingest.ProcessorCounters { return s.counters }
func (s *staticCounters) FailureCount() int64                { return s.failures }

func TestGetStats(t *testing.T) {
	source := &staticCounters{
		counters: ingest.ProcessorCounters{
			Created:          5,
			NotATask:         12,
			Duplicates:       2,
			ExtractionFailed: 1,
			InfraFailures:    3,
		},
		failures: 4,
	}
	handler := NewStatsHandler(source, source)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	handler.GetStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(5), resp.TasksCreated)
	assert.Equal(t, int64(12), resp.NotATask)
	assert.Equal(t, int64(2), resp.Duplicates)
	assert.Equal(t, int64(1), resp.ExtractionFailures)
	assert.Equal(t, int64(3), resp.InfraFailures)
	assert.Equal(t, int64(4), resp.ClassificationFailures)
}
