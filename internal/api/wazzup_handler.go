package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dvolkov/taskdesk/internal/api/shared"
	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/ingest"
)

// JobSubmitter enqueues inbound messages for classification.
type JobSubmitter interface {
	Submit(ctx context.Context, payload ingest.InboundJob) error
}

// WazzupWebhookPayload is the webhook envelope the Wazzup integration
// delivers for chat events.
type WazzupWebhookPayload struct {
	Event string            `json:"event"`
	Data  WazzupWebhookData `json:"data"`
}

// WazzupWebhookData carries one Wazzup chat event.
type WazzupWebhookData struct {
	MessageID  string `json:"messageId"`
	ChatID     string `json:"chatId"`
	ChatType   string `json:"chatType"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
	Direction  string `json:"direction"`
}

// WazzupHandler turns Wazzup webhook events into ingestion jobs.
type WazzupHandler struct {
	jobs JobSubmitter
}

// NewWazzupHandler creates a new WazzupHandler.
func NewWazzupHandler(jobs JobSubmitter) *WazzupHandler {
	return &WazzupHandler{jobs: jobs}
}

// HandleWebhook handles POST /wazzup/webhook requests. Only incoming text
// messages enter the pipeline; status events and outgoing messages are
// acknowledged and dropped.
func (h *WazzupHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload WazzupWebhookPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if payload.Event != "message" || payload.Data.Direction != "incoming" || payload.Data.Text == "" {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	data := payload.Data

	senderLabel := data.SenderName
	if senderLabel == "" {
		senderLabel = data.SenderID
	}
	sourceName := fmt.Sprintf("WhatsApp (%s)", senderLabel)

	job := ingest.InboundJob{
		Message:          data.Text,
		SourceType:       domain.ChannelWazzup,
		SourceExternalID: data.ChatID,
		SourceMessageID:  data.MessageID,
		SourceName:       &sourceName,
	}
	if senderLabel != "" {
		job.SenderName = &senderLabel
	}

	if err := h.jobs.Submit(r.Context(), job); err != nil {
		slog.Error("failed to submit wazzup job",
			"chat_id", data.ChatID,
			"message_id", data.MessageID,
			"error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to enqueue message")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
