package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrTaskNotFound indicates a task was not found by the given identifier.
	ErrTaskNotFound = errors.New("task not found")

	// ErrProcessNotFound indicates a process was not found by the given identifier.
	ErrProcessNotFound = errors.New("process not found")

	// ErrFormNotFound indicates a form was not found by the given identifier.
	ErrFormNotFound = errors.New("form not found")

	// ErrAlreadyExists indicates an entity with the same identifier is already stored.
	ErrAlreadyExists = errors.New("already exists")

	// ErrVersionConflict indicates the stored task changed since it was loaded.
	ErrVersionConflict = errors.New("version conflict")
)

// EntityError wraps storage errors with the entity they concern.
type EntityError struct {
	Op   string // Operation being performed (e.g., "GetByID", "Update", "Delete")
	Kind string // task, process, form
	ID   string
	Err  error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewEntityError creates a new entity error with context.
func NewEntityError(op, kind, id string, err error) *EntityError {
	return &EntityError{Op: op, Kind: kind, ID: id, Err: err}
}

// TaskNotFound, ProcessNotFound and FormNotFound build the not-found error
// each backend returns from GetByID and Delete.
func TaskNotFound(op, id string) error {
	return NewEntityError(op, "task", id, ErrTaskNotFound)
}

func ProcessNotFound(op, id string) error {
	return NewEntityError(op, "process", id, ErrProcessNotFound)
}

func FormNotFound(op, id string) error {
	return NewEntityError(op, "form", id, ErrFormNotFound)
}

// VersionConflict builds the error returned by TaskRepository.Update.
func VersionConflict(id string, expected, actual int64) error {
	return NewEntityError("Update", "task", id,
		fmt.Errorf("%w: expected version %d, stored version %d", ErrVersionConflict, expected, actual))
}

// IsNotFound checks if an error indicates any entity was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrProcessNotFound) ||
		errors.Is(err, ErrFormNotFound)
}

// IsVersionConflict checks if an error indicates a concurrent task update.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsAlreadyExists checks if an error indicates a duplicate identifier.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}
