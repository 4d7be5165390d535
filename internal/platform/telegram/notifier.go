package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/events"
	"github.com/dvolkov/taskdesk/internal/scheduler"
)

// TaskDirectory is the slice of the task service the notifier needs to
// render and anchor cards.
type TaskDirectory interface {
	GetTaskByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	SetCardCoordinates(ctx context.Context, id uuid.UUID, chatID, messageID string) error
}

// Notifier publishes task cards to the tasks chat and delivers scheduler
// reminders. It consumes task_created events so the service layer stays
// ignorant of the chat platform.
type Notifier struct {
	client      *Client
	tasksChatID string
	directory   TaskDirectory
	logger      *slog.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(client *Client, tasksChatID string, directory TaskDirectory, logger *slog.Logger) *Notifier {
	return &Notifier{
		client:      client,
		tasksChatID: tasksChatID,
		directory:   directory,
		logger:      logger.With("component", "telegram_notifier"),
	}
}

// HandleEvent publishes a card for every freshly created task. Other event
// types are ignored. Publish failures are logged and swallowed: a card can
// be republished manually, while failing the handler would bubble into the
// ingestion path for a task that is already committed.
func (n *Notifier) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.EventTaskCreated {
		return nil
	}

	var payload events.TaskCreatedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		n.logger.Error("failed to decode task_created payload", "error", err, "event_id", event.ID)
		return nil
	}

	if err := n.PublishTask(ctx, payload.TaskID); err != nil {
		n.logger.Error("failed to publish task card",
			"task_id", payload.TaskID,
			"error", err)
	}

	return nil
}

// PublishTask sends the task's card to the tasks chat and records the
// card's coordinates on the task.
func (n *Notifier) PublishTask(ctx context.Context, taskID uuid.UUID) error {
	task, err := n.directory.GetTaskByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to load task: %w", err)
	}

	text := FormatCard(task, n.assigneeHandle(ctx, task))
	keyboard := BuildKeyboard(task.ID)

	msg, err := n.client.SendMessage(ctx, SendMessageParams{
		ChatID:      n.tasksChatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	})
	if err != nil {
		return fmt.Errorf("failed to send card: %w", err)
	}

	messageID := strconv.FormatInt(msg.MessageID, 10)
	if err := n.directory.SetCardCoordinates(ctx, task.ID, n.tasksChatID, messageID); err != nil {
		return fmt.Errorf("failed to record card coordinates: %w", err)
	}

	n.logger.Info("task card published",
		"task_id", task.ID,
		"chat_id", n.tasksChatID,
		"message_id", messageID)

	return nil
}

// SendReminder delivers one reminder, replying to the task's card when its
// coordinates are known.
func (n *Notifier) SendReminder(ctx context.Context, task *domain.Task, kind scheduler.ReminderKind) error {
	params := SendMessageParams{
		ChatID:    n.tasksChatID,
		Text:      FormatReminder(task, kind),
		ParseMode: "HTML",
	}

	if task.TasksMessageID != nil {
		if replyTo, err := strconv.ParseInt(*task.TasksMessageID, 10, 64); err == nil {
			params.ReplyToMessageID = replyTo
		}
	}

	if _, err := n.client.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}

	n.logger.Info("reminder sent",
		"task_id", task.ID,
		"kind", kind)

	return nil
}

// assigneeHandle resolves the card's assignee label, preferring the
// Telegram handle over the display name. Resolution failures degrade to an
// unassigned card.
func (n *Notifier) assigneeHandle(ctx context.Context, task *domain.Task) string {
	if task.AssigneeID == nil {
		return ""
	}

	user, err := n.directory.GetUser(ctx, *task.AssigneeID)
	if err != nil {
		n.logger.Warn("failed to resolve assignee for card",
			"task_id", task.ID,
			"assignee_id", *task.AssigneeID,
			"error", err)
		return ""
	}

	return userHandle(user)
}

// userHandle picks the best human-readable identifier for a user.
func userHandle(user *domain.User) string {
	if user.TelegramUsername != nil && *user.TelegramUsername != "" {
		return *user.TelegramUsername
	}
	if user.Name != nil && *user.Name != "" {
		return *user.Name
	}
	return ""
}
