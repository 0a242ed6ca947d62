package workflow

import (
	"errors"
	"fmt"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
)

var (
	// ErrInvalidStateTransition indicates an action not allowed from the task's status.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrNotApprover indicates the actor is not a resolved approver of the current stage.
	ErrNotApprover = errors.New("actor is not an approver of the current stage")

	// ErrNotRequester indicates someone other than the requester tried to submit a draft.
	ErrNotRequester = errors.New("only the requester can submit the task")

	// ErrAlreadyApproved indicates the actor already approved the current stage visit.
	ErrAlreadyApproved = errors.New("actor already approved the current stage")

	// ErrNoStages indicates a process without stages was used to create a task.
	ErrNoStages = errors.New("process has no stages")

	// ErrUnknownStage indicates a stage key that the process does not define.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrFormProcessMismatch indicates a form bound to a different process.
	ErrFormProcessMismatch = errors.New("form is not bound to the process")
)

// TransitionError wraps a failed task action with its context.
type TransitionError struct {
	Op       string // Create, Submit, Approve or Reject
	TaskID   string
	Status   models.TaskStatus
	StageKey string
	Err      error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s task %s (status %s, stage %s): %v", e.Op, e.TaskID, e.Status, e.StageKey, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func (e *TransitionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func transitionError(op string, task *models.Task, err error) *TransitionError {
	te := &TransitionError{Op: op, Err: err}
	if task != nil {
		te.TaskID = task.ID
		te.Status = task.Status
		te.StageKey = task.CurrentStageKey
	}

	return te
}

// IsInvalidStateTransition checks if an error is a rejected status transition.
func IsInvalidStateTransition(err error) bool {
	return errors.Is(err, ErrInvalidStateTransition)
}
