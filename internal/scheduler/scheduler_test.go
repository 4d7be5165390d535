package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvolkov/taskdesk/internal/domain"
)

// fakeProvider serves canned windows and records the boundaries it was
// queried with.
type fakeProvider struct {
	staleNew []*domain.Task
	staleErr error
	due      map[ReminderKind][]*domain.Task
	dueErr   error

	staleCutoff  time.Time
	dueCalls     []dueCall
	remindedIDs  []uuid.UUID
	markFailures map[uuid.UUID]error
}

type dueCall struct {
	from, to, remindedBefore time.Time
}

func (f *fakeProvider) StaleNewTasks(ctx context.Context, cutoff time.Time) ([]*domain.Task, error) {
	f.staleCutoff = cutoff
	return f.staleNew, f.staleErr
}

func (f *fakeProvider) DueTasksBetween(ctx context.Context, from, to, remindedBefore time.Time) ([]*domain.Task, error) {
	f.dueCalls = append(f.dueCalls, dueCall{from: from, to: to, remindedBefore: remindedBefore})
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	// The two deadline windows are told apart by how far out they reach.
	if to.Sub(time.Now().UTC()) > 4*time.Hour {
		return f.due[ReminderDue24h], nil
	}
	return f.due[ReminderDue2h], nil
}

func (f *fakeProvider) MarkReminded(ctx context.Context, id uuid.UUID) error {
	if err, ok := f.markFailures[id]; ok {
		return err
	}
	f.remindedIDs = append(f.remindedIDs, id)
	return nil
}

type sentReminder struct {
	taskID uuid.UUID
	kind   ReminderKind
}

// fakeSender records sent reminders and fails for selected tasks.
type fakeSender struct {
	sent     []sentReminder
	failures map[uuid.UUID]error
}

func (f *fakeSender) SendReminder(ctx context.Context, task *domain.Task, kind ReminderKind) error {
	if err, ok := f.failures[task.ID]; ok {
		return err
	}
	f.sent = append(f.sent, sentReminder{taskID: task.ID, kind: kind})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staleTask() *domain.Task {
	return &domain.Task{ID: uuid.New(), Title: "Unclaimed task", Status: domain.TaskStatusNew}
}

func TestTickDispatchesAllWindows(t *testing.T) {
	stale := staleTask()
	due24 := &domain.Task{ID: uuid.New(), Title: "Due tomorrow", Status: domain.TaskStatusInProgress}
	due2 := &domain.Task{ID: uuid.New(), Title: "Due soon", Status: domain.TaskStatusNew}

	provider := &fakeProvider{
		staleNew: []*domain.Task{stale},
		due: map[ReminderKind][]*domain.Task{
			ReminderDue24h: {due24},
			ReminderDue2h:  {due2},
		},
	}
	sender := &fakeSender{}

	s := New(provider, sender, Config{
		RemindNewAfter: 30 * time.Minute,
		Due24hEnabled:  true,
		Due2hEnabled:   true,
	}, testLogger())

	before := time.Now().UTC()
	s.tick()
	after := time.Now().UTC()

	require.Len(t, sender.sent, 3)
	assert.Equal(t, sentReminder{taskID: stale.ID, kind: ReminderStaleNew}, sender.sent[0])
	assert.Equal(t, sentReminder{taskID: due24.ID, kind: ReminderDue24h}, sender.sent[1])
	assert.Equal(t, sentReminder{taskID: due2.ID, kind: ReminderDue2h}, sender.sent[2])

	assert.ElementsMatch(t, []uuid.UUID{stale.ID, due24.ID, due2.ID}, provider.remindedIDs)

	// The throttle cutoff trails now by RemindNewAfter.
	assert.WithinDuration(t, before.Add(-30*time.Minute), provider.staleCutoff, after.Sub(before)+time.Second)

	require.Len(t, provider.dueCalls, 2)
	first := provider.dueCalls[0]
	assert.Equal(t, 2*time.Hour, first.to.Sub(first.from))
	assert.WithinDuration(t, before.Add(23*time.Hour), first.from, after.Sub(before)+time.Second)
	second := provider.dueCalls[1]
	assert.Equal(t, 2*time.Hour, second.to.Sub(second.from))
	assert.WithinDuration(t, before.Add(1*time.Hour), second.from, after.Sub(before)+time.Second)
	assert.Equal(t, first.remindedBefore, second.remindedBefore)
}

func TestTickDisabledWindowsAreNotQueried(t *testing.T) {
	provider := &fakeProvider{}
	sender := &fakeSender{}

	s := New(provider, sender, Config{RemindNewAfter: 30 * time.Minute}, testLogger())
	s.tick()

	assert.Empty(t, provider.dueCalls, "deadline windows stay off unless enabled")
	assert.Empty(t, sender.sent)
}

func TestTickTaskInMultipleWindowsRemindedPerWindow(t *testing.T) {
	task := &domain.Task{ID: uuid.New(), Title: "Everywhere at once", Status: domain.TaskStatusNew}

	provider := &fakeProvider{
		staleNew: []*domain.Task{task},
		due: map[ReminderKind][]*domain.Task{
			ReminderDue2h: {task},
		},
	}
	sender := &fakeSender{}

	s := New(provider, sender, Config{
		RemindNewAfter: 30 * time.Minute,
		Due2hEnabled:   true,
	}, testLogger())
	s.tick()

	require.Len(t, sender.sent, 2)
	assert.Equal(t, ReminderStaleNew, sender.sent[0].kind)
	assert.Equal(t, ReminderDue2h, sender.sent[1].kind)
	assert.Equal(t, []uuid.UUID{task.ID, task.ID}, provider.remindedIDs)
}

func TestTickSendFailureSkipsBookkeepingAndContinues(t *testing.T) {
	broken := staleTask()
	healthy := staleTask()

	provider := &fakeProvider{staleNew: []*domain.Task{broken, healthy}}
	sender := &fakeSender{
		failures: map[uuid.UUID]error{broken.ID: errors.New("telegram: 502")},
	}

	s := New(provider, sender, Config{RemindNewAfter: 30 * time.Minute}, testLogger())
	s.tick()

	// The failed task keeps its reminder state untouched and will be
	// retried on a later tick.
	require.Len(t, sender.sent, 1)
	assert.Equal(t, healthy.ID, sender.sent[0].taskID)
	assert.Equal(t, []uuid.UUID{healthy.ID}, provider.remindedIDs)
}

func TestTickWindowLoadFailureDoesNotAbortOtherWindows(t *testing.T) {
	due2 := &domain.Task{ID: uuid.New(), Title: "Due soon", Status: domain.TaskStatusInProgress}

	provider := &fakeProvider{
		staleErr: errors.New("db gone"),
		due: map[ReminderKind][]*domain.Task{
			ReminderDue2h: {due2},
		},
	}
	sender := &fakeSender{}

	s := New(provider, sender, Config{
		RemindNewAfter: 30 * time.Minute,
		Due2hEnabled:   true,
	}, testLogger())
	s.tick()

	require.Len(t, sender.sent, 1)
	assert.Equal(t, ReminderDue2h, sender.sent[0].kind)
}

func TestTickMarkRemindedFailureContinues(t *testing.T) {
	first := staleTask()
	second := staleTask()

	provider := &fakeProvider{
		staleNew:     []*domain.Task{first, second},
		markFailures: map[uuid.UUID]error{first.ID: errors.New("db gone")},
	}
	sender := &fakeSender{}

	s := New(provider, sender, Config{RemindNewAfter: 30 * time.Minute}, testLogger())
	s.tick()

	require.Len(t, sender.sent, 2)
	assert.Equal(t, []uuid.UUID{second.ID}, provider.remindedIDs)
}

func TestSchedulerDefaults(t *testing.T) {
	s := New(&fakeProvider{}, &fakeSender{}, Config{}, testLogger())

	assert.Equal(t, 5*time.Minute, s.config.Interval)
	assert.Equal(t, 30*time.Minute, s.config.RemindNewAfter)
}
