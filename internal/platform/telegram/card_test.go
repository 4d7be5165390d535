package telegram

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvolkov/taskdesk/internal/domain"
	"github.com/dvolkov/taskdesk/internal/scheduler"
)

func strptr(s string) *string { return &s }

func cardTask() *domain.Task {
	return &domain.Task{
		ID:        uuid.New(),
		Title:     "Заменить фасад",
		Status:    domain.TaskStatusNew,
		Priority:  domain.TaskPriorityNormal,
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestFormatCardMinimal(t *testing.T) {
	task := cardTask()

	card := FormatCard(task, "")

	assert.Contains(t, card, "🆕 <b>Новая</b>")
	assert.Contains(t, card, "<b>Заменить фасад</b>")
	assert.Contains(t, card, fmt.Sprintf("<i>ID: %s</i>", task.ID.String()[:8]))
	assert.NotContains(t, card, "👷 Взял")
	assert.NotContains(t, card, "СРОЧНО")
}

func TestFormatCardFullDetails(t *testing.T) {
	task := cardTask()
	task.Status = domain.TaskStatusInProgress
	task.Priority = domain.TaskPriorityHigh
	task.Description = strptr("Кухня на Ленина, 12")
	task.ClientName = strptr("Иванов")
	task.ObjectName = strptr("Объект №3")
	task.DueText = strptr("до пятницы")
	task.Tags = []string{"замер", "фасады"}

	card := FormatCard(task, "petrov")

	assert.Contains(t, card, "🔵 <b>В работе</b>")
	assert.Contains(t, card, "👤 Клиент: Иванов")
	assert.Contains(t, card, "📍 Объект: Объект №3")
	assert.Contains(t, card, "👷 Взял: @petrov")
	assert.Contains(t, card, "⏰ Срок: до пятницы")
	assert.Contains(t, card, "🏷 замер, фасады")
	assert.Contains(t, card, "🔥 <b>СРОЧНО</b>")
}

func TestFormatCardEscapesHTML(t *testing.T) {
	task := cardTask()
	task.Title = "Починить <b>дверь</b> & замок"

	card := FormatCard(task, "")

	assert.Contains(t, card, "Починить &lt;b&gt;дверь&lt;/b&gt; &amp; замок")
	assert.NotContains(t, card, "<b>дверь</b>")
}

func TestFormatCardUnknownStatusFallsBackToNew(t *testing.T) {
	task := cardTask()
	task.Status = domain.TaskStatus("BOGUS")

	assert.Contains(t, FormatCard(task, ""), "🆕 <b>Новая</b>")
}

func TestBuildKeyboard(t *testing.T) {
	taskID := uuid.New()

	kb := BuildKeyboard(taskID)

	require.Len(t, kb.InlineKeyboard, 3)
	require.Len(t, kb.InlineKeyboard[0], 2)
	require.Len(t, kb.InlineKeyboard[1], 2)
	require.Len(t, kb.InlineKeyboard[2], 1)

	assert.Equal(t, "✅ Взял", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "took:"+taskID.String(), kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "clarify:"+taskID.String(), kb.InlineKeyboard[0][1].CallbackData)
	assert.Equal(t, "postpone:"+taskID.String(), kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "done:"+taskID.String(), kb.InlineKeyboard[1][1].CallbackData)
	assert.Equal(t, "reject:"+taskID.String(), kb.InlineKeyboard[2][0].CallbackData)
}

func TestParseCallbackData(t *testing.T) {
	taskID := uuid.New()

	action, parsedID, err := parseCallbackData("took:" + taskID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskActionTook, action)
	assert.Equal(t, taskID, parsedID)

	_, _, err = parseCallbackData("took")
	assert.Error(t, err, "data without a separator is rejected")

	_, _, err = parseCallbackData("explode:" + taskID.String())
	assert.Error(t, err, "unknown actions are rejected")

	_, _, err = parseCallbackData("took:not-a-uuid")
	assert.Error(t, err)
}

func TestFormatReminder(t *testing.T) {
	task := cardTask()
	task.DueText = strptr("завтра к обеду")

	assert.Contains(t, FormatReminder(task, scheduler.ReminderDue24h), "📅 <b>Дедлайн завтра!</b>")
	assert.Contains(t, FormatReminder(task, scheduler.ReminderDue24h), "Срок: завтра к обеду")
	assert.Contains(t, FormatReminder(task, scheduler.ReminderDue2h), "🚨 <b>Дедлайн через 2 часа!</b>")

	stale := FormatReminder(task, scheduler.ReminderStaleNew)
	assert.Contains(t, stale, "⚠️ <b>Задача не взята!</b>")
	assert.Contains(t, stale, "Создана: 14.03.2026 09:30")
}

func TestFormatReminderDueLabelFallbacks(t *testing.T) {
	task := cardTask()

	assert.Contains(t, FormatReminder(task, scheduler.ReminderDue24h), "Срок: не указан")

	due := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	task.DueAt = &due
	assert.Contains(t, FormatReminder(task, scheduler.ReminderDue24h), "Срок: 15.03.2026 18:00")
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Ivan Petrov", fullName(&User{FirstName: "Ivan", LastName: "Petrov"}))
	assert.Equal(t, "Ivan", fullName(&User{FirstName: "Ivan"}))
	assert.Equal(t, "", fullName(&User{}))

	card := FormatCard(cardTask(), "")
	assert.False(t, strings.Contains(card, "@"), "no assignee row without a handle")
}
