// Package services orchestrates storage, the workflow engine and event
// publishing for directory, definition and task operations.
package services

import (
	"errors"
	"fmt"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/rules"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/workflow"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidDefinition = errors.New("invalid definition")
	ErrUnknownProcess    = errors.New("form references an unknown process")

	// Stale client state (409 Conflict).
	ErrStaleVersion = errors.New("task version does not match")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidDefinition) ||
		errors.Is(err, ErrUnknownProcess) ||
		errors.Is(err, rules.ErrInvalidSubmission) ||
		errors.Is(err, workflow.ErrNoStages) ||
		errors.Is(err, workflow.ErrUnknownStage) ||
		errors.Is(err, workflow.ErrFormProcessMismatch)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrStaleVersion) ||
		errors.Is(err, workflow.ErrInvalidStateTransition) ||
		errors.Is(err, workflow.ErrAlreadyApproved) ||
		errors.Is(err, persistence.ErrVersionConflict) ||
		errors.Is(err, persistence.ErrAlreadyExists)
}

// IsForbiddenError checks if the actor may not perform the action (HTTP 403).
func IsForbiddenError(err error) bool {
	return errors.Is(err, workflow.ErrNotApprover) || errors.Is(err, workflow.ErrNotRequester)
}

// IsNotFoundError checks if a referenced entity does not exist (HTTP 404).
func IsNotFoundError(err error) bool {
	return persistence.IsNotFound(err)
}

// ErrorCode returns the API error code carried by err, if any.
func ErrorCode(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code
	}

	return ""
}
