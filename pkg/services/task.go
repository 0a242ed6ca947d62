package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/eventbus"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/events"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/otelhelper"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/rules"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Task runs task operations: load snapshots, apply the engine, store the
// result under an optimistic version check, then publish events.
type Task struct {
	persistence persistence.Persistence
	engine      *workflow.Engine
	eventBus    eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewTask creates a new task service. eventBus may be nil.
func NewTask(
	persistence persistence.Persistence,
	engine *workflow.Engine,
	eventBus eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Task {
	return &Task{
		persistence: persistence,
		engine:      engine,
		eventBus:    eventBus,
		tracer:      tracer,
		logger:      logger.With("module", "task_service"),
	}
}

// CreateTaskRequest starts a task from a form.
type CreateTaskRequest struct {
	FormID          string         `json:"formId"          validate:"required"`
	RequesterUserID string         `json:"requesterUserId" validate:"required"`
	Data            map[string]any `json:"data"`
	Draft           bool           `json:"draft"`
}

func (s *Task) Create(ctx context.Context, req CreateTaskRequest) (*models.Task, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "task.create",
		attribute.String(otelhelper.FormIDKey, req.FormID),
		attribute.String(otelhelper.ActorUserIDKey, req.RequesterUserID))
	defer span.End()

	form, err := s.persistence.FormRepository().GetByID(ctx, req.FormID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	process, err := s.persistence.ProcessRepository().GetByID(ctx, form.ProcessID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	directory, err := s.persistence.DirectoryRepository().Snapshot(ctx)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load directory: %w", err)
	}

	task, err := s.engine.CreateTask(workflow.CreateTaskRequest{
		Process:         process,
		Form:            form,
		Directory:       directory,
		RequesterUserID: req.RequesterUserID,
		Data:            req.Data,
		Draft:           req.Draft,
	})
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if err := s.persistence.TaskRepository().Create(ctx, task); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to store task: %w", err)
	}

	span.SetAttributes(attribute.String(otelhelper.TaskIDKey, task.ID))
	s.logger.InfoContext(ctx, "Task created", "task_id", task.ID, "process_id", task.ProcessID, "status", task.Status)

	s.publish(ctx, task.ID, &events.TaskCreated{
		BaseEvent:       events.NewBaseEvent(events.TaskCreatedEvent, task.ID, task.ProcessID),
		FormID:          task.FormID,
		RequesterUserID: task.RequesterUserID,
		Status:          string(task.Status),
		StageKey:        task.CurrentStageKey,
	})

	return task, nil
}

func (s *Task) FetchByID(ctx context.Context, id string) (*models.Task, error) {
	return s.persistence.TaskRepository().GetByID(ctx, id)
}

// ListByRequester returns the tasks a user started, oldest first.
func (s *Task) ListByRequester(ctx context.Context, requesterUserID string) ([]*models.Task, error) {
	return s.persistence.TaskRepository().ListByRequester(ctx, requesterUserID)
}

// ListPendingFor returns IN_PROGRESS tasks waiting on approverUserID at their
// current stage. Tasks the user already approved in this stage visit are left out.
func (s *Task) ListPendingFor(ctx context.Context, approverUserID string) ([]*models.Task, error) {
	open, err := s.persistence.TaskRepository().ListByStatus(ctx, models.TaskStatusInProgress)
	if err != nil {
		return nil, err
	}

	pending := make([]*models.Task, 0, len(open))

	for _, task := range open {
		if task.IsApprover(approverUserID) && !task.HasApprovedCurrentStage(approverUserID) {
			pending = append(pending, task)
		}
	}

	return pending, nil
}

// ActionRequest is the payload of submit, approve and reject. Version, when
// set, must equal the stored task version.
type ActionRequest struct {
	TaskID      string         `json:"-"`
	ActorUserID string         `json:"actorUserId" validate:"required"`
	Data        map[string]any `json:"data"`
	Version     *int64         `json:"version"`
}

func (s *Task) Submit(ctx context.Context, req ActionRequest) (*workflow.Transition, error) {
	return s.act(ctx, "submit", req, s.engine.Submit)
}

func (s *Task) Approve(ctx context.Context, req ActionRequest) (*workflow.Transition, error) {
	return s.act(ctx, "approve", req, s.engine.Approve)
}

func (s *Task) Reject(ctx context.Context, req ActionRequest) (*workflow.Transition, error) {
	return s.act(ctx, "reject", req, s.engine.Reject)
}

func (s *Task) act(
	ctx context.Context,
	action string,
	req ActionRequest,
	apply func(workflow.ActionRequest) (*workflow.Transition, error),
) (*workflow.Transition, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "task."+action,
		attribute.String(otelhelper.TaskIDKey, req.TaskID),
		attribute.String(otelhelper.ActorUserIDKey, req.ActorUserID),
		attribute.String(otelhelper.ActionKey, action))
	defer span.End()

	transition, err := s.apply(ctx, req, apply)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.TaskStatusKey, string(transition.Task.Status)),
		attribute.String(otelhelper.StageKeyKey, transition.Task.CurrentStageKey))

	s.logger.InfoContext(ctx, "Task action applied",
		"task_id", req.TaskID, "action", action, "actor", req.ActorUserID,
		"from", transition.FromStageKey, "to", transition.ToStageKey, "status", transition.Task.Status)

	for _, event := range s.transitionEvents(transition) {
		s.publish(ctx, req.TaskID, event)
	}

	return transition, nil
}

func (s *Task) apply(
	ctx context.Context,
	req ActionRequest,
	apply func(workflow.ActionRequest) (*workflow.Transition, error),
) (*workflow.Transition, error) {
	task, err := s.persistence.TaskRepository().GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	if req.Version != nil && *req.Version != task.Version {
		return nil, &ServiceError{
			Op:      "Act",
			Code:    "STALE_VERSION",
			Message: fmt.Sprintf("task %s is at version %d, not %d", task.ID, task.Version, *req.Version),
			Err:     ErrStaleVersion,
		}
	}

	process, err := s.persistence.ProcessRepository().GetByID(ctx, task.ProcessID)
	if err != nil {
		return nil, err
	}

	var form *models.Form

	if task.FormID != "" {
		form, err = s.persistence.FormRepository().GetByID(ctx, task.FormID)
		if err != nil {
			return nil, err
		}
	}

	transition, err := apply(workflow.ActionRequest{
		Task:        task,
		Process:     process,
		Form:        form,
		ActorUserID: req.ActorUserID,
		Data:        req.Data,
	})
	if err != nil {
		return nil, err
	}

	if err := s.persistence.TaskRepository().Update(ctx, transition.Task, task.Version); err != nil {
		return nil, err
	}

	return transition, nil
}

func (s *Task) transitionEvents(t *workflow.Transition) []eventbus.Event {
	task := t.Task
	base := func(eventType events.EventType) events.BaseEvent {
		return events.NewBaseEvent(eventType, task.ID, task.ProcessID)
	}

	var out []eventbus.Event

	switch {
	case t.Rejected:
		out = append(out, &events.TaskRejected{
			BaseEvent: base(events.TaskRejectedEvent), ActorUserID: t.ActorUserID, StageKey: t.FromStageKey,
		})

		return out
	case t.Action == "Submit":
		out = append(out, &events.TaskSubmitted{
			BaseEvent: base(events.TaskSubmittedEvent), ActorUserID: t.ActorUserID, StageKey: t.FromStageKey,
		})
	default:
		out = append(out, &events.TaskApproved{
			BaseEvent: base(events.TaskApprovedEvent), ActorUserID: t.ActorUserID, StageKey: t.FromStageKey,
		})
	}

	switch {
	case t.Completed:
		out = append(out, &events.TaskCompleted{BaseEvent: base(events.TaskCompletedEvent), LastStageKey: t.FromStageKey})
	case t.Advanced:
		out = append(out, &events.TaskAdvanced{
			BaseEvent:        base(events.TaskAdvancedEvent),
			FromStageKey:     t.FromStageKey,
			ToStageKey:       t.ToStageKey,
			PendingApprovers: task.ApproversFor(t.ToStageKey),
		})
	}

	return out
}

// publish logs failures; the task is already stored.
func (s *Task) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.Publish(ctx, key, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish task event", "task_id", key, "event_type", event.GetType(), "error", err)
	}
}

// FieldAccess lists per-field visibility, editability and requirement for
// actorUserID at the task's current stage.
func (s *Task) FieldAccess(ctx context.Context, taskID, actorUserID string) ([]rules.Access, error) {
	task, err := s.persistence.TaskRepository().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	form, err := s.persistence.FormRepository().GetByID(ctx, task.FormID)
	if err != nil {
		return nil, err
	}

	return s.engine.FieldAccess(task, form, actorUserID), nil
}

// PendingApprovers lists who the task is still waiting on.
func (s *Task) PendingApprovers(ctx context.Context, task *models.Task) ([]string, error) {
	process, err := s.persistence.ProcessRepository().GetByID(ctx, task.ProcessID)
	if err != nil {
		return nil, err
	}

	return s.engine.PendingApprovers(task, process), nil
}

// Schema returns the JSON schema actorUserID's data must satisfy at the
// task's current stage.
func (s *Task) Schema(ctx context.Context, taskID, actorUserID string) (*models.JSONSchema, error) {
	task, err := s.persistence.TaskRepository().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	form, err := s.persistence.FormRepository().GetByID(ctx, task.FormID)
	if err != nil {
		return nil, err
	}

	return rules.BuildSchema(form, task.CurrentStageKey, actorUserID, task.ApproversFor(task.CurrentStageKey)), nil
}
