// Package persistence provides the storage abstraction for directory
// snapshots, process and form definitions, and tasks.
package persistence

import (
	"context"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
)

type Persistence interface {
	DirectoryRepository() DirectoryRepository
	ProcessRepository() ProcessRepository
	FormRepository() FormRepository
	TaskRepository() TaskRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// DirectoryRepository stores the organizational directory.
type DirectoryRepository interface {
	// Snapshot returns the whole directory. An empty store yields an empty directory.
	Snapshot(ctx context.Context) (*models.Directory, error)
	// Replace swaps the stored directory for dir.
	Replace(ctx context.Context, dir *models.Directory) error
	SaveUser(ctx context.Context, user *models.User) error
	SaveDepartment(ctx context.Context, department *models.Department) error
	SaveRole(ctx context.Context, role *models.Role) error
}

type ProcessRepository interface {
	GetAll(ctx context.Context) ([]*models.Process, error)
	GetByID(ctx context.Context, id string) (*models.Process, error)
	Save(ctx context.Context, process *models.Process) error
	Delete(ctx context.Context, id string) error
}

type FormRepository interface {
	GetAll(ctx context.Context) ([]*models.Form, error)
	GetByID(ctx context.Context, id string) (*models.Form, error)
	Save(ctx context.Context, form *models.Form) error
	Delete(ctx context.Context, id string) error
}

// TaskRepository stores tasks with optimistic concurrency control.
//
// Update succeeds only while the stored version equals expectedVersion;
// otherwise it returns ErrVersionConflict and leaves the record untouched.
// List results are ordered by creation time, oldest first.
type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task, expectedVersion int64) error
	ListByRequester(ctx context.Context, requesterUserID string) ([]*models.Task, error)
	ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error)
	Delete(ctx context.Context, id string) error
}
