package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// Directory manages the users, departments and roles approvers resolve against.
// Changes never affect approvers already frozen on tasks.
type Directory struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewDirectory creates a new directory service.
func NewDirectory(persistence persistence.Persistence, validate *validator.Validate, logger *slog.Logger) *Directory {
	return &Directory{
		persistence: persistence,
		validate:    validate,
		logger:      logger.With("module", "directory_service"),
	}
}

func (d *Directory) Snapshot(ctx context.Context) (*models.Directory, error) {
	return d.persistence.DirectoryRepository().Snapshot(ctx)
}

// Replace imports a whole directory snapshot.
func (d *Directory) Replace(ctx context.Context, dir *models.Directory) error {
	if dir == nil {
		return NewValidationError("ReplaceDirectory", "DIRECTORY_REQUIRED", "directory is required", ErrInvalidRequest)
	}

	seen := map[string]struct{}{}

	for _, u := range dir.Users {
		if err := d.check(u); err != nil {
			return err
		}

		if _, dup := seen["user:"+u.ID]; dup {
			return NewValidationError("ReplaceDirectory", "DUPLICATE_USER",
				fmt.Sprintf("user %q appears more than once", u.ID), ErrInvalidRequest)
		}

		seen["user:"+u.ID] = struct{}{}
	}

	for _, dept := range dir.Departments {
		if err := d.check(dept); err != nil {
			return err
		}
	}

	for _, role := range dir.Roles {
		if err := d.check(role); err != nil {
			return err
		}
	}

	if err := d.persistence.DirectoryRepository().Replace(ctx, dir); err != nil {
		return fmt.Errorf("failed to replace directory: %w", err)
	}

	d.logger.InfoContext(ctx, "Directory imported",
		"users", len(dir.Users), "departments", len(dir.Departments), "roles", len(dir.Roles))

	return nil
}

func (d *Directory) SaveUser(ctx context.Context, user *models.User) error {
	if err := d.check(user); err != nil {
		return err
	}

	if user.RoleIDs == nil {
		user.RoleIDs = []string{}
	}

	return d.persistence.DirectoryRepository().SaveUser(ctx, user)
}

func (d *Directory) SaveDepartment(ctx context.Context, department *models.Department) error {
	if err := d.check(department); err != nil {
		return err
	}

	return d.persistence.DirectoryRepository().SaveDepartment(ctx, department)
}

func (d *Directory) SaveRole(ctx context.Context, role *models.Role) error {
	if err := d.check(role); err != nil {
		return err
	}

	return d.persistence.DirectoryRepository().SaveRole(ctx, role)
}

func (d *Directory) check(entity any) error {
	if err := d.validate.Struct(entity); err != nil {
		return NewValidationError("ValidateDirectory", "INVALID_DIRECTORY_ENTRY", describe(err), ErrInvalidRequest)
	}

	return nil
}
