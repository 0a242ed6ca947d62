// Package reminders periodically nudges approvers of tasks that have been
// waiting on the same stage for too long.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/eventbus"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/events"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/workflow"
	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule   = "0 9 * * 1-5"
	DefaultStaleAfter = 48 * time.Hour
)

var (
	ErrInvalidSchedule   = errors.New("invalid reminder schedule")
	ErrInvalidStaleAfter = errors.New("stale-after must be positive")
)

// parser accepts standard 5-field cron expressions (minute hour dom month dow).
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

type Config struct {
	Schedule   string
	StaleAfter time.Duration
}

type Option func(*Reminder)

// WithClock overrides the time source used to decide staleness.
func WithClock(now func() time.Time) Option {
	return func(r *Reminder) { r.now = now }
}

type Reminder struct {
	config      Config
	schedule    cron.Schedule
	persistence persistence.Persistence
	engine      *workflow.Engine
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	now         func() time.Time

	cron *cron.Cron
}

func New(
	config Config,
	persistence persistence.Persistence,
	engine *workflow.Engine,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	opts ...Option,
) (*Reminder, error) {
	if config.Schedule == "" {
		config.Schedule = DefaultSchedule
	}

	if config.StaleAfter == 0 {
		config.StaleAfter = DefaultStaleAfter
	}

	if config.StaleAfter < 0 {
		return nil, ErrInvalidStaleAfter
	}

	schedule, err := parser.Parse(config.Schedule)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, config.Schedule, err)
	}

	r := &Reminder{
		config:      config,
		schedule:    schedule,
		persistence: persistence,
		engine:      engine,
		publisher:   publisher,
		logger:      logger.With("module", "reminders", "schedule", config.Schedule),
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Next returns the first run after t.
func (r *Reminder) Next(t time.Time) time.Time {
	return r.schedule.Next(t)
}

// Start runs the reminder job on its schedule until Stop is called.
func (r *Reminder) Start(ctx context.Context) error {
	if r.cron != nil {
		return errors.New("reminder job already started")
	}

	logger := cronLogger{r.logger}
	r.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger)),
	)

	r.cron.Schedule(r.schedule, cron.FuncJob(func() {
		sent, err := r.RunOnce(ctx)
		if err != nil {
			r.logger.ErrorContext(ctx, "Reminder run failed", "error", err)

			return
		}

		r.logger.InfoContext(ctx, "Reminder run finished", "reminders_sent", sent)
	}))

	r.cron.Start()
	r.logger.InfoContext(ctx, "Reminder job started", "next_run", r.Next(r.now()))

	return nil
}

// Stop halts the schedule and waits for a running job until ctx is done.
func (r *Reminder) Stop(ctx context.Context) error {
	if r.cron == nil {
		return nil
	}

	done := r.cron.Stop()

	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce publishes one approval reminder per IN_PROGRESS task that has not
// changed within StaleAfter and still waits on someone. It returns the
// number of reminders published.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	tasks, err := r.persistence.TaskRepository().ListByStatus(ctx, models.TaskStatusInProgress)
	if err != nil {
		return 0, fmt.Errorf("failed to list in-progress tasks: %w", err)
	}

	cutoff := r.now().Add(-r.config.StaleAfter)
	processes := map[string]*models.Process{}
	sent := 0

	for _, task := range tasks {
		if task.UpdatedAt.After(cutoff) {
			continue
		}

		process, ok := processes[task.ProcessID]
		if !ok {
			process, err = r.persistence.ProcessRepository().GetByID(ctx, task.ProcessID)
			if err != nil && !persistence.IsNotFound(err) {
				return sent, fmt.Errorf("failed to load process %s: %w", task.ProcessID, err)
			}

			processes[task.ProcessID] = process
		}

		if process == nil {
			r.logger.WarnContext(ctx, "Skipping task of deleted process", "task_id", task.ID, "process_id", task.ProcessID)

			continue
		}

		pending := r.engine.PendingApprovers(task, process)
		if len(pending) == 0 {
			continue
		}

		event := &events.TaskApprovalReminder{
			BaseEvent:        events.NewBaseEvent(events.TaskApprovalReminderEvent, task.ID, task.ProcessID),
			StageKey:         task.CurrentStageKey,
			PendingApprovers: pending,
			WaitingSince:     task.UpdatedAt,
		}

		if err := r.publisher.Publish(ctx, task.ID, event); err != nil {
			return sent, fmt.Errorf("failed to publish reminder for task %s: %w", task.ID, err)
		}

		sent++

		r.logger.DebugContext(ctx, "Reminder published",
			"task_id", task.ID, "stage_key", task.CurrentStageKey, "pending", len(pending))
	}

	return sent, nil
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
