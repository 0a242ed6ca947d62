// Package workflow composes approver resolution, field rules and routing into
// the task lifecycle: create, submit, approve and reject.
package workflow

import (
	"log/slog"
	"maps"
	"time"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/approvers"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/routing"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/rules"
	"github.com/google/uuid"
)

// Engine applies lifecycle actions to task snapshots. It holds no task
// state; every action returns a new task and leaves its input untouched.
type Engine struct {
	logger              *slog.Logger
	now                 func() time.Time
	newID               func() string
	enforceApprovalMode bool
}

type Option func(*Engine)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the task ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// WithApprovalModeEnforcement toggles ALL-mode stages. When disabled any
// single approval advances every stage.
func WithApprovalModeEnforcement(enabled bool) Option {
	return func(e *Engine) { e.enforceApprovalMode = enabled }
}

func New(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		logger:              logger.With("module", "workflow_engine"),
		now:                 func() time.Time { return time.Now().UTC() },
		newID:               uuid.NewString,
		enforceApprovalMode: true,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Transition is the outcome of a lifecycle action.
type Transition struct {
	Task         *models.Task
	Action       string
	ActorUserID  string
	FromStageKey string
	ToStageKey   string
	Advanced     bool
	Completed    bool
	Rejected     bool
}

// CreateTaskRequest carries the snapshots needed to start a task.
type CreateTaskRequest struct {
	Process         *models.Process
	Form            *models.Form
	Directory       *models.Directory
	RequesterUserID string
	Data            map[string]any
	// Draft starts the task in DRAFT; otherwise it starts IN_PROGRESS.
	Draft bool
}

// CreateTask resolves approvers for every stage once, places the task on
// the first stage by order and applies field default values for keys
// missing from Data. Keys the requester cannot edit at the first stage are
// dropped from Data. Tasks started IN_PROGRESS must satisfy the first
// stage's schema for the requester.
func (e *Engine) CreateTask(req CreateTaskRequest) (*models.Task, error) {
	const op = "Create"

	first := req.Process.FirstStage()
	if first == nil {
		return nil, transitionError(op, nil, ErrNoStages)
	}

	if req.Form != nil && req.Form.ProcessID != req.Process.ID {
		return nil, transitionError(op, nil, ErrFormProcessMismatch)
	}

	reqCtx := approvers.RequesterContext{RequesterUserID: req.RequesterUserID}
	if u := req.Directory.UserByID(req.RequesterUserID); u != nil {
		reqCtx.RequesterDepartmentID = u.DepartmentID
	}

	resolved := approvers.Resolve(req.Process, req.Directory, reqCtx)

	for _, stage := range req.Process.OrderedStages() {
		if len(resolved[stage.StageKey]) == 0 {
			e.logger.Warn("Stage resolved to no approvers",
				"process_id", req.Process.ID, "stage_key", stage.StageKey)
		}
	}

	data := maps.Clone(req.Data)
	if data == nil {
		data = make(map[string]any)
	}

	if req.Form != nil {
		editable := rules.EditableKeys(req.Form, first.StageKey, req.RequesterUserID, resolved[first.StageKey])
		maps.DeleteFunc(data, func(k string, _ any) bool {
			_, ok := editable[k]

			return !ok
		})
	}

	for _, field := range req.Form.OrderedFields() {
		if _, ok := data[field.Key]; !ok && field.DefaultValue != nil {
			data[field.Key] = field.DefaultValue
		}
	}

	status := models.TaskStatusInProgress
	if req.Draft {
		status = models.TaskStatusDraft
	}

	now := e.now()
	task := &models.Task{
		ID:                       e.newID(),
		ProcessID:                req.Process.ID,
		RequesterUserID:          req.RequesterUserID,
		CurrentStageKey:          first.StageKey,
		Status:                   status,
		ResolvedApproversByStage: resolved,
		Approvals:                []models.TaskApproval{},
		Data:                     data,
		Version:                  1,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if req.Form != nil {
		task.FormID = req.Form.ID

		if !req.Draft {
			err := rules.Validate(req.Form, first.StageKey, req.RequesterUserID, resolved[first.StageKey], data)
			if err != nil {
				return nil, transitionError(op, task, err)
			}
		}
	}

	e.logger.Debug("Task created",
		"task_id", task.ID, "process_id", task.ProcessID, "stage_key", task.CurrentStageKey, "status", task.Status)

	return task, nil
}

// ActionRequest is the input of Submit, Approve and Reject.
type ActionRequest struct {
	Task        *models.Task
	Process     *models.Process
	Form        *models.Form
	ActorUserID string
	// Data is merged into the task data; keys the actor cannot edit at the
	// current stage are dropped.
	Data map[string]any
}

// Submit moves a DRAFT task out of its first stage. Only the requester may
// submit. The route is chosen like
// an approval; reaching no further stage completes the task.
func (e *Engine) Submit(req ActionRequest) (*Transition, error) {
	const op = "Submit"

	if req.Task == nil {
		return nil, transitionError(op, nil, ErrInvalidStateTransition)
	}

	if req.Task.Status != models.TaskStatusDraft {
		return nil, transitionError(op, req.Task, ErrInvalidStateTransition)
	}

	if req.ActorUserID != req.Task.RequesterUserID {
		return nil, transitionError(op, req.Task, ErrNotRequester)
	}

	if req.Process.StageByKey(req.Task.CurrentStageKey) == nil {
		return nil, transitionError(op, req.Task, ErrUnknownStage)
	}

	task := req.Task.Clone()

	if err := e.mergeAndValidate(task, req); err != nil {
		return nil, transitionError(op, req.Task, err)
	}

	e.record(task, models.ActionApprove, req.ActorUserID)

	t, err := e.advance(task, req.Process)
	if err != nil {
		return nil, transitionError(op, req.Task, err)
	}

	t.Action = op
	t.ActorUserID = req.ActorUserID

	return t, nil
}

// Approve records the actor's approval of the current stage and advances
// the task once the stage's approval mode is satisfied.
func (e *Engine) Approve(req ActionRequest) (*Transition, error) {
	const op = "Approve"

	if req.Task == nil {
		return nil, transitionError(op, nil, ErrInvalidStateTransition)
	}

	if req.Task.Status != models.TaskStatusInProgress {
		return nil, transitionError(op, req.Task, ErrInvalidStateTransition)
	}

	stage := req.Process.StageByKey(req.Task.CurrentStageKey)
	if stage == nil {
		return nil, transitionError(op, req.Task, ErrUnknownStage)
	}

	if err := e.authorize(req.Task, req.ActorUserID); err != nil {
		return nil, transitionError(op, req.Task, err)
	}

	if req.Task.HasApprovedCurrentStage(req.ActorUserID) {
		return nil, transitionError(op, req.Task, ErrAlreadyApproved)
	}

	task := req.Task.Clone()

	if err := e.mergeAndValidate(task, req); err != nil {
		return nil, transitionError(op, req.Task, err)
	}

	e.record(task, models.ActionApprove, req.ActorUserID)

	if pending := e.pendingFor(task, stage); len(pending) > 0 {
		e.logger.Debug("Stage awaiting further approvals",
			"task_id", task.ID, "stage_key", task.CurrentStageKey, "pending", pending)

		return &Transition{
			Task:         task,
			Action:       op,
			ActorUserID:  req.ActorUserID,
			FromStageKey: task.CurrentStageKey,
			ToStageKey:   task.CurrentStageKey,
		}, nil
	}

	t, err := e.advance(task, req.Process)
	if err != nil {
		return nil, transitionError(op, req.Task, err)
	}

	t.Action = op
	t.ActorUserID = req.ActorUserID

	return t, nil
}

// Reject ends the task as REJECTED without leaving the current stage.
func (e *Engine) Reject(req ActionRequest) (*Transition, error) {
	const op = "Reject"

	if req.Task == nil {
		return nil, transitionError(op, nil, ErrInvalidStateTransition)
	}

	if req.Task.Status != models.TaskStatusDraft && req.Task.Status != models.TaskStatusInProgress {
		return nil, transitionError(op, req.Task, ErrInvalidStateTransition)
	}

	if err := e.authorize(req.Task, req.ActorUserID); err != nil {
		return nil, transitionError(op, req.Task, err)
	}

	task := req.Task.Clone()
	e.record(task, models.ActionReject, req.ActorUserID)
	task.Status = models.TaskStatusRejected

	e.logger.Debug("Task rejected", "task_id", task.ID, "stage_key", task.CurrentStageKey, "actor", req.ActorUserID)

	return &Transition{
		Task:         task,
		Action:       op,
		ActorUserID:  req.ActorUserID,
		FromStageKey: task.CurrentStageKey,
		ToStageKey:   task.CurrentStageKey,
		Rejected:     true,
	}, nil
}

// FieldAccess evaluates every field of form for actorUserID at the task's
// current stage. Nothing is editable once the task is terminal.
func (e *Engine) FieldAccess(task *models.Task, form *models.Form, actorUserID string) []rules.Access {
	if task == nil {
		return nil
	}

	access := rules.Evaluate(form, task.CurrentStageKey, actorUserID, task.ApproversFor(task.CurrentStageKey))

	if task.Status.IsTerminal() {
		for i := range access {
			access[i].Editable = false
		}
	}

	return access
}

// PendingApprovers lists approvers of the current stage whose approval is
// still outstanding. For ANY_ONE stages, and when approval modes are not
// enforced, it lists every approver until one has approved.
func (e *Engine) PendingApprovers(task *models.Task, process *models.Process) []string {
	if task == nil || task.Status != models.TaskStatusInProgress {
		return nil
	}

	stage := process.StageByKey(task.CurrentStageKey)
	if stage == nil {
		return nil
	}

	all := task.ApproversFor(task.CurrentStageKey)

	if !e.requiresAll(stage) {
		for _, id := range all {
			if task.HasApprovedCurrentStage(id) {
				return nil
			}
		}

		return append([]string(nil), all...)
	}

	return e.pendingFor(task, stage)
}

// IsTerminal reports whether the task accepts no further actions.
func IsTerminal(task *models.Task) bool {
	return task != nil && task.Status.IsTerminal()
}

func (e *Engine) requiresAll(stage *models.Stage) bool {
	return e.enforceApprovalMode && stage.Mode() == models.ApprovalModeAll
}

// pendingFor returns approvers that block an ALL-mode stage; it is empty for
// stages that advance on one approval.
func (e *Engine) pendingFor(task *models.Task, stage *models.Stage) []string {
	if !e.requiresAll(stage) {
		return nil
	}

	var pending []string

	for _, id := range task.ApproversFor(task.CurrentStageKey) {
		if !task.HasApprovedCurrentStage(id) {
			pending = append(pending, id)
		}
	}

	return pending
}

func (e *Engine) authorize(task *models.Task, actorUserID string) error {
	if len(task.ApproversFor(task.CurrentStageKey)) == 0 {
		e.logger.Warn("Stage has no resolved approvers, accepting any actor",
			"task_id", task.ID, "stage_key", task.CurrentStageKey, "actor", actorUserID)

		return nil
	}

	if !task.IsApprover(actorUserID) {
		return ErrNotApprover
	}

	return nil
}

func (e *Engine) mergeAndValidate(task *models.Task, req ActionRequest) error {
	stageKey := task.CurrentStageKey
	stageApprovers := task.ApproversFor(stageKey)

	if task.Data == nil {
		task.Data = make(map[string]any)
	}

	if len(req.Data) > 0 && req.Form != nil {
		editable := rules.EditableKeys(req.Form, stageKey, req.ActorUserID, stageApprovers)

		for k, v := range req.Data {
			if _, ok := editable[k]; !ok {
				e.logger.Debug("Dropping non-editable key", "task_id", task.ID, "stage_key", stageKey, "key", k)

				continue
			}

			task.Data[k] = v
		}
	}

	if req.Form == nil {
		return nil
	}

	return rules.Validate(req.Form, stageKey, req.ActorUserID, stageApprovers, task.Data)
}

func (e *Engine) record(task *models.Task, action models.ApprovalAction, actorUserID string) {
	now := e.now()

	task.Approvals = append(task.Approvals, models.TaskApproval{
		StageKey:      task.CurrentStageKey,
		Action:        action,
		ActedByUserID: actorUserID,
		ActedAt:       now,
	})
	task.Version++
	task.UpdatedAt = now
}

// advance routes task out of its current stage. The task is expected to be
// a private copy.
func (e *Engine) advance(task *models.Task, process *models.Process) (*Transition, error) {
	from := task.CurrentStageKey

	var stages []*models.Stage
	if process != nil {
		stages = process.Stages
	}

	next, ok := routing.NextStageKey(from, stages, task.Data)

	t := &Transition{Task: task, FromStageKey: from, ToStageKey: from}

	if !ok || routing.IsComplete(next) {
		task.Status = models.TaskStatusCompleted
		t.Completed = true

		e.logger.Debug("Task completed", "task_id", task.ID, "stage_key", from)

		return t, nil
	}

	if process.StageByKey(next) == nil {
		return nil, ErrUnknownStage
	}

	task.CurrentStageKey = next
	task.StageEntryIndex = len(task.Approvals)
	task.Status = models.TaskStatusInProgress
	t.ToStageKey = next
	t.Advanced = true

	e.logger.Debug("Task advanced", "task_id", task.ID, "from", from, "to", next)

	return t, nil
}
