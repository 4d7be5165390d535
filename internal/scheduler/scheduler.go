package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dvolkov/taskdesk/internal/domain"
)

// ReminderKind tags a reminder with the window that produced it, so the
// sender can word the notification accordingly.
type ReminderKind string

// Reminder windows computed on every tick.
const (
	ReminderStaleNew ReminderKind = "stale_new"
	ReminderDue24h   ReminderKind = "due_24h"
	ReminderDue2h    ReminderKind = "due_2h"
)

// TaskProvider is the slice of the task service the scheduler reads from
// and writes reminder bookkeeping through.
type TaskProvider interface {
	StaleNewTasks(ctx context.Context, cutoff time.Time) ([]*domain.Task, error)
	DueTasksBetween(ctx context.Context, from, to, remindedBefore time.Time) ([]*domain.Task, error)
	MarkReminded(ctx context.Context, id uuid.UUID) error
}

// ReminderSender dispatches a reminder notification for a task. Best
// effort: a send failure is logged by the scheduler and never aborts the
// tick.
type ReminderSender interface {
	SendReminder(ctx context.Context, task *domain.Task, kind ReminderKind) error
}

// Config holds the scheduler's cadence and window toggles.
type Config struct {
	// Interval is the tick cadence.
	Interval time.Duration

	// RemindNewAfter is both the stale-new age threshold and the throttle
	// interval applied to every window.
	RemindNewAfter time.Duration

	// Due24hEnabled toggles the due-in-24h window.
	Due24hEnabled bool

	// Due2hEnabled toggles the due-in-2h window.
	Due2hEnabled bool
}

// Scheduler periodically scans the task store and dispatches throttled
// reminders across three windows. Ticks never overlap: a tick still running
// when the next fires causes that tick to be skipped, which keeps
// reminded_count from double-counting. Missed ticks are harmless since the
// next tick recomputes the windows from scratch.
type Scheduler struct {
	provider TaskProvider
	sender   ReminderSender
	config   Config
	cron     *cron.Cron
	logger   *slog.Logger
}

// New creates a new Scheduler.
func New(provider TaskProvider, sender ReminderSender, config Config, logger *slog.Logger) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.RemindNewAfter <= 0 {
		config.RemindNewAfter = 30 * time.Minute
	}

	return &Scheduler{
		provider: provider,
		sender:   sender,
		config:   config,
		logger:   logger.With("component", "reminder_scheduler"),
	}
}

// Start registers the tick job and begins scheduling.
func (s *Scheduler) Start() error {
	cronLogger := newCronLogger(s.logger)

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	spec := fmt.Sprintf("@every %s", s.config.Interval)
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("failed to schedule reminder tick: %w", err)
	}

	c.Start()
	s.cron = c

	s.logger.Info("reminder scheduler started",
		"interval", s.config.Interval,
		"remind_new_after", s.config.RemindNewAfter,
		"due_24h_enabled", s.config.Due24hEnabled,
		"due_2h_enabled", s.config.Due2hEnabled)

	return nil
}

// Stop stops scheduling and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// tick computes the three windows against the current time and dispatches
// reminders for every qualifying task. A task qualifying for more than one
// window gets one reminder per window.
func (s *Scheduler) tick() {
	ctx := context.Background()
	now := time.Now().UTC()
	throttleCutoff := now.Add(-s.config.RemindNewAfter)

	s.runWindow(ctx, ReminderStaleNew, func() ([]*domain.Task, error) {
		return s.provider.StaleNewTasks(ctx, throttleCutoff)
	})

	if s.config.Due24hEnabled {
		s.runWindow(ctx, ReminderDue24h, func() ([]*domain.Task, error) {
			return s.provider.DueTasksBetween(ctx, now.Add(23*time.Hour), now.Add(25*time.Hour), throttleCutoff)
		})
	}

	if s.config.Due2hEnabled {
		s.runWindow(ctx, ReminderDue2h, func() ([]*domain.Task, error) {
			return s.provider.DueTasksBetween(ctx, now.Add(1*time.Hour), now.Add(3*time.Hour), throttleCutoff)
		})
	}
}

// runWindow loads one window's tasks and dispatches their reminders. A
// failure for one task is logged and the loop continues; bookkeeping is
// only updated after a successful send, so a failed reminder is retried on
// a later tick.
func (s *Scheduler) runWindow(ctx context.Context, kind ReminderKind, load func() ([]*domain.Task, error)) {
	tasks, err := load()
	if err != nil {
		s.logger.Error("failed to load reminder window",
			"kind", kind,
			"error", err)
		return
	}

	if len(tasks) == 0 {
		return
	}

	s.logger.Info("dispatching reminders",
		"kind", kind,
		"count", len(tasks))

	for _, task := range tasks {
		if err := s.sender.SendReminder(ctx, task, kind); err != nil {
			s.logger.Error("failed to send reminder",
				"kind", kind,
				"task_id", task.ID,
				"error", err)
			continue
		}

		if err := s.provider.MarkReminded(ctx, task.ID); err != nil {
			s.logger.Error("failed to mark task reminded",
				"kind", kind,
				"task_id", task.ID,
				"error", err)
		}
	}
}
