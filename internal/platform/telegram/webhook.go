package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/ingest"
	"github.com/dvolkov/taskdesk/internal/service"
	"github.com/dvolkov/taskdesk/internal/store"
)

// JobSubmitter enqueues inbound messages for classification.
type JobSubmitter interface {
	Submit(ctx context.Context, payload ingest.InboundJob) error
}

// Transcriber converts an audio recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// ActionService is the slice of the task service the webhook needs to
// apply board actions.
type ActionService interface {
	ApplyAction(ctx context.Context, taskID uuid.UUID, action domain.TaskAction, actorID *uuid.UUID) (*service.TaskUpdate, error)
	ResolveActor(ctx context.Context, telegramID, telegramUsername, name *string) (*domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Webhook turns Telegram updates into ingestion jobs and board actions.
// Text and transcribed audio messages become InboundJobs; inline keyboard
// presses become status transitions, reflected back onto the card.
type Webhook struct {
	client      *Client
	tasksChatID string
	jobs        JobSubmitter
	transcriber Transcriber
	actions     ActionService
	logger      *slog.Logger
}

// NewWebhook creates a new Webhook.
func NewWebhook(
	client *Client,
	tasksChatID string,
	jobs JobSubmitter,
	transcriber Transcriber,
	actions ActionService,
	logger *slog.Logger,
) *Webhook {
	return &Webhook{
		client:      client,
		tasksChatID: tasksChatID,
		jobs:        jobs,
		transcriber: transcriber,
		actions:     actions,
		logger:      logger.With("component", "telegram_webhook"),
	}
}

// Handle is the HTTP handler for the bot's webhook endpoint. Updates are
// answered 200 so Telegram does not redeliver them, with one exception: a
// message whose job row could not be persisted answers 500, making
// Telegram redeliver the update. The dedup key keeps that redelivery
// idempotent once the row lands.
func (w *Webhook) Handle(rw http.ResponseWriter, r *http.Request) {
	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		w.logger.Warn("failed to decode webhook update", "error", err)
		rw.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()

	switch {
	case update.CallbackQuery != nil:
		w.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		if err := w.handleMessage(ctx, update.Message); err != nil {
			http.Error(rw, "failed to enqueue message", http.StatusInternalServerError)
			return
		}
	}

	rw.WriteHeader(http.StatusOK)
}

// handleMessage routes one inbound message. Messages from the tasks chat
// itself and bot commands never enter the pipeline. A non-nil error means
// the message could not be enqueued and needs redelivery.
func (w *Webhook) handleMessage(ctx context.Context, msg *Message) error {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	if chatID == w.tasksChatID {
		return nil
	}

	switch {
	case msg.Text != "":
		if strings.HasPrefix(msg.Text, "/") {
			return nil
		}
		return w.submitJob(ctx, msg, msg.Text)

	case msg.Voice != nil:
		return w.handleAudio(ctx, msg, msg.Voice.FileID, "voice.ogg")

	case msg.Audio != nil:
		return w.handleAudio(ctx, msg, msg.Audio.FileID, "audio.mp3")

	case msg.VideoNote != nil:
		return w.handleAudio(ctx, msg, msg.VideoNote.FileID, "video_note.mp4")
	}

	return nil
}

// handleAudio downloads and transcribes a voice, audio or video-note
// message. A transcription failure drops the message silently; there is no
// text to classify without a transcript. Only a failed enqueue of the
// finished transcript is reported back for redelivery.
func (w *Webhook) handleAudio(ctx context.Context, msg *Message, fileID, filename string) error {
	log := w.logger.With(
		"chat_id", msg.Chat.ID,
		"message_id", msg.MessageID,
	)

	file, err := w.client.GetFile(ctx, fileID)
	if err != nil {
		log.Warn("failed to resolve audio file", "error", err)
		return nil
	}
	if file.FilePath == "" {
		log.Warn("audio file has no path")
		return nil
	}

	audio, err := w.client.DownloadFile(ctx, file.FilePath)
	if err != nil {
		log.Warn("failed to download audio file", "error", err)
		return nil
	}

	text, err := w.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		log.Warn("failed to transcribe audio", "error", err)
		return nil
	}
	if text == "" {
		log.Warn("audio transcript is empty")
		return nil
	}

	log.Info("audio transcribed", "length", len(text))

	return w.submitJob(ctx, msg, text)
}

// submitJob converts a message into an InboundJob and enqueues it.
func (w *Webhook) submitJob(ctx context.Context, msg *Message, text string) error {
	job := ingest.InboundJob{
		Message:          text,
		SourceType:       domain.ChannelTelegram,
		SourceExternalID: strconv.FormatInt(msg.Chat.ID, 10),
		SourceMessageID:  strconv.FormatInt(msg.MessageID, 10),
	}

	if msg.Chat.Title != "" {
		job.SourceName = &msg.Chat.Title
	}

	if msg.From != nil {
		id := strconv.FormatInt(msg.From.ID, 10)
		job.SenderTelegramID = &id

		if msg.From.Username != "" {
			job.SenderUsername = &msg.From.Username
		}

		if name := fullName(msg.From); name != "" {
			job.SenderName = &name
		}
	}

	if err := w.jobs.Submit(ctx, job); err != nil {
		w.logger.Error("failed to submit inbound job",
			"chat_id", msg.Chat.ID,
			"message_id", msg.MessageID,
			"error", err)
		return err
	}

	return nil
}

// handleCallback applies the board action encoded in a button press and
// updates the card to match.
func (w *Webhook) handleCallback(ctx context.Context, cq *CallbackQuery) {
	action, taskID, err := parseCallbackData(cq.Data)
	if err != nil {
		w.logger.Warn("unparseable callback data", "data", cq.Data, "error", err)
		w.answer(ctx, cq.ID, "Неизвестное действие")
		return
	}

	log := w.logger.With(
		"task_id", taskID,
		"action", action,
		"username", cq.From.Username,
	)

	actor, err := w.resolveActor(ctx, &cq.From)
	if err != nil {
		log.Error("failed to resolve acting user", "error", err)
		w.answer(ctx, cq.ID, "Ошибка обработки")
		return
	}

	update, err := w.actions.ApplyAction(ctx, taskID, action, &actor.ID)
	if err != nil {
		if store.IsNotFoundError(err) {
			w.answer(ctx, cq.ID, "Задача не найдена")
			return
		}
		log.Error("failed to apply action", "error", err)
		w.answer(ctx, cq.ID, "Ошибка обработки")
		return
	}

	task := update.Task

	// A rejected task's card is withdrawn; the record itself stays.
	if task.Status == domain.TaskStatusRejected {
		w.withdrawCard(ctx, cq, task)
		w.answer(ctx, cq.ID, "Сообщение удалено")
		return
	}

	w.refreshCard(ctx, cq, task)

	badge := badgeFor(task.Status)
	w.answer(ctx, cq.ID, fmt.Sprintf("%s %s", badge.Emoji, badge.Label))
}

// resolveActor upserts the user behind a button press.
func (w *Webhook) resolveActor(ctx context.Context, from *User) (*domain.User, error) {
	id := strconv.FormatInt(from.ID, 10)

	var username *string
	if from.Username != "" {
		username = &from.Username
	}

	var name *string
	if n := fullName(from); n != "" {
		name = &n
	}

	return w.actions.ResolveActor(ctx, &id, username, name)
}

// refreshCard rewrites the card message with the task's new status.
func (w *Webhook) refreshCard(ctx context.Context, cq *CallbackQuery, task *domain.Task) {
	if cq.Message == nil {
		return
	}

	var assigneeHandle string
	if task.AssigneeID != nil {
		if user, err := w.actions.GetUser(ctx, *task.AssigneeID); err == nil {
			assigneeHandle = userHandle(user)
		}
	}

	err := w.client.EditMessageText(ctx, EditMessageTextParams{
		ChatID:      strconv.FormatInt(cq.Message.Chat.ID, 10),
		MessageID:   cq.Message.MessageID,
		Text:        FormatCard(task, assigneeHandle),
		ParseMode:   "HTML",
		ReplyMarkup: BuildKeyboard(task.ID),
	})
	if err != nil {
		w.logger.Error("failed to refresh task card",
			"task_id", task.ID,
			"error", err)
	}
}

// withdrawCard deletes the card message of a rejected task.
func (w *Webhook) withdrawCard(ctx context.Context, cq *CallbackQuery, task *domain.Task) {
	if cq.Message == nil {
		return
	}

	chatID := strconv.FormatInt(cq.Message.Chat.ID, 10)
	if err := w.client.DeleteMessage(ctx, chatID, cq.Message.MessageID); err != nil {
		w.logger.Error("failed to withdraw task card",
			"task_id", task.ID,
			"error", err)
	}
}

func (w *Webhook) answer(ctx context.Context, callbackQueryID, text string) {
	if err := w.client.AnswerCallbackQuery(ctx, callbackQueryID, text); err != nil {
		w.logger.Warn("failed to answer callback query", "error", err)
	}
}

// parseCallbackData splits "action:taskID" callback data.
func parseCallbackData(data string) (domain.TaskAction, uuid.UUID, error) {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		return "", uuid.Nil, fmt.Errorf("malformed callback data %q", data)
	}

	action := domain.TaskAction(parts[0])
	if _, err := domain.StatusForAction(action); err != nil {
		return "", uuid.Nil, err
	}

	taskID, err := uuid.Parse(parts[1])
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("malformed task id in callback data: %w", err)
	}

	return action, taskID, nil
}

// fullName joins a Telegram user's first and last name.
func fullName(u *User) string {
	name := strings.TrimSpace(u.FirstName)
	if u.LastName != "" {
		name = strings.TrimSpace(name + " " + u.LastName)
	}
	return name
}
