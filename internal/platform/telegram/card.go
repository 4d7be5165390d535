package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/scheduler"
)

// statusBadge is the emoji and human label shown in a card header.
type statusBadge struct {
	Emoji string
	Label string
}

var statusBadges = map[domain.TaskStatus]statusBadge{
	domain.TaskStatusNew:           {Emoji: "🆕", Label: "Новая"},
	domain.TaskStatusInProgress:    {Emoji: "🔵", Label: "В работе"},
	domain.TaskStatusClarification: {Emoji: "🟡", Label: "Уточняется"},
	domain.TaskStatusPostponed:     {Emoji: "🟠", Label: "Перенесено"},
	domain.TaskStatusDone:          {Emoji: "✅", Label: "Выполнено"},
	domain.TaskStatusRejected:      {Emoji: "🧨", Label: "Не задача"},
}

// badgeFor returns the badge for a status, defaulting to the NEW badge.
func badgeFor(status domain.TaskStatus) statusBadge {
	if badge, ok := statusBadges[status]; ok {
		return badge
	}
	return statusBadges[domain.TaskStatusNew]
}

// FormatCard renders the HTML card text for a task. assigneeHandle, when
// set, is the assignee's handle or display name shown on the card.
func FormatCard(task *domain.Task, assigneeHandle string) string {
	badge := badgeFor(task.Status)

	var b strings.Builder

	fmt.Fprintf(&b, "%s <b>%s</b>\n\n", badge.Emoji, badge.Label)
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(task.Title))

	if task.Description != nil && *task.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", html.EscapeString(*task.Description))
	}

	if task.ClientName != nil && *task.ClientName != "" {
		fmt.Fprintf(&b, "\n👤 Клиент: %s", html.EscapeString(*task.ClientName))
	}

	if task.ObjectName != nil && *task.ObjectName != "" {
		fmt.Fprintf(&b, "\n📍 Объект: %s", html.EscapeString(*task.ObjectName))
	}

	if assigneeHandle != "" {
		fmt.Fprintf(&b, "\n👷 Взял: @%s", html.EscapeString(assigneeHandle))
	}

	if task.DueText != nil && *task.DueText != "" {
		fmt.Fprintf(&b, "\n⏰ Срок: %s", html.EscapeString(*task.DueText))
	}

	if len(task.Tags) > 0 {
		fmt.Fprintf(&b, "\n\n🏷 %s", html.EscapeString(strings.Join(task.Tags, ", ")))
	}

	if task.Priority == domain.TaskPriorityHigh {
		b.WriteString("\n\n🔥 <b>СРОЧНО</b>")
	}

	fmt.Fprintf(&b, "\n\n<i>ID: %s</i>", shortID(task.ID))

	return b.String()
}

// BuildKeyboard renders the action keyboard for a task card. Buttons carry
// "action:taskID" callback data.
func BuildKeyboard(taskID uuid.UUID) *InlineKeyboardMarkup {
	id := taskID.String()
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{
				{Text: "✅ Взял", CallbackData: fmt.Sprintf("%s:%s", domain.TaskActionTook, id)},
				{Text: "🧾 Уточнить", CallbackData: fmt.Sprintf("%s:%s", domain.TaskActionClarify, id)},
			},
			{
				{Text: "📅 Перенёс", CallbackData: fmt.Sprintf("%s:%s", domain.TaskActionPostpone, id)},
				{Text: "☑️ Закрыл", CallbackData: fmt.Sprintf("%s:%s", domain.TaskActionDone, id)},
			},
			{
				{Text: "🧨 Не задача", CallbackData: fmt.Sprintf("%s:%s", domain.TaskActionReject, id)},
			},
		},
	}
}

// FormatReminder renders the reminder text for a task and window kind.
func FormatReminder(task *domain.Task, kind scheduler.ReminderKind) string {
	title := html.EscapeString(task.Title)

	switch kind {
	case scheduler.ReminderDue24h:
		return fmt.Sprintf("📅 <b>Дедлайн завтра!</b>\n\n%s\n\n<i>Срок: %s</i>", title, dueLabel(task))
	case scheduler.ReminderDue2h:
		return fmt.Sprintf("🚨 <b>Дедлайн через 2 часа!</b>\n\n%s\n\n<i>Срок: %s</i>", title, dueLabel(task))
	default:
		created := task.CreatedAt.Format("02.01.2006 15:04")
		return fmt.Sprintf("⚠️ <b>Задача не взята!</b>\n\n%s\n\n<i>Создана: %s</i>", title, created)
	}
}

func dueLabel(task *domain.Task) string {
	if task.DueText != nil && *task.DueText != "" {
		return html.EscapeString(*task.DueText)
	}
	if task.DueAt != nil {
		return task.DueAt.Format("02.01.2006 15:04")
	}
	return "не указан"
}

func shortID(id uuid.UUID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
