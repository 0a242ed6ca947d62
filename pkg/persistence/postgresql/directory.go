package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
)

// DirectoryRepository stores users, departments and roles in their own tables.
type DirectoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDirectoryRepository creates a new directory repository.
func NewDirectoryRepository(db *sql.DB, logger *slog.Logger) *DirectoryRepository {
	return &DirectoryRepository{db: db, logger: logger}
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *DirectoryRepository) Snapshot(ctx context.Context) (*models.Directory, error) {
	dir := &models.Directory{
		Users:       []*models.User{},
		Departments: []*models.Department{},
		Roles:       []*models.Role{},
	}

	departments, err := r.db.QueryContext(ctx, "SELECT id, name FROM departments ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}
	defer func() { _ = departments.Close() }()

	for departments.Next() {
		var d models.Department
		if err := departments.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}

		dir.Departments = append(dir.Departments, &d)
	}

	if err := departments.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate departments: %w", err)
	}

	roles, err := r.db.QueryContext(ctx, "SELECT id, name FROM roles ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer func() { _ = roles.Close() }()

	for roles.Next() {
		var role models.Role
		if err := roles.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}

		dir.Roles = append(dir.Roles, &role)
	}

	if err := roles.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}

	users, err := r.db.QueryContext(ctx,
		"SELECT id, display_name, email, department_id, role_ids FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = users.Close() }()

	for users.Next() {
		var (
			u       models.User
			roleIDs []byte
		)

		if err := users.Scan(&u.ID, &u.DisplayName, &u.Email, &u.DepartmentID, &roleIDs); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		if err := json.Unmarshal(roleIDs, &u.RoleIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal role ids of user %s: %w", u.ID, err)
		}

		dir.Users = append(dir.Users, &u)
	}

	if err := users.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return dir, nil
}

func (r *DirectoryRepository) Replace(ctx context.Context, dir *models.Directory) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"users", "departments", "roles"} {
		_, err = tx.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, d := range dir.Departments {
		if err = saveDepartment(ctx, tx, d); err != nil {
			return err
		}
	}

	for _, role := range dir.Roles {
		if err = saveRole(ctx, tx, role); err != nil {
			return err
		}
	}

	for _, u := range dir.Users {
		if err = saveUser(ctx, tx, u); err != nil {
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit directory: %w", err)
	}

	r.logger.InfoContext(ctx, "Directory replaced",
		"users", len(dir.Users), "departments", len(dir.Departments), "roles", len(dir.Roles))

	return nil
}

func (r *DirectoryRepository) SaveUser(ctx context.Context, user *models.User) error {
	return saveUser(ctx, r.db, user)
}

func (r *DirectoryRepository) SaveDepartment(ctx context.Context, department *models.Department) error {
	return saveDepartment(ctx, r.db, department)
}

func (r *DirectoryRepository) SaveRole(ctx context.Context, role *models.Role) error {
	return saveRole(ctx, r.db, role)
}

func saveUser(ctx context.Context, q queryer, user *models.User) error {
	roleIDs := user.RoleIDs
	if roleIDs == nil {
		roleIDs = []string{}
	}

	roleIDsJSON, err := json.Marshal(roleIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal role ids: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, department_id, role_ids)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			department_id = EXCLUDED.department_id,
			role_ids = EXCLUDED.role_ids
	`, user.ID, user.DisplayName, user.Email, user.DepartmentID, roleIDsJSON)
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}

	return nil
}

func saveDepartment(ctx context.Context, q queryer, department *models.Department) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO departments (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, department.ID, department.Name)
	if err != nil {
		return fmt.Errorf("failed to save department %s: %w", department.ID, err)
	}

	return nil
}

func saveRole(ctx context.Context, q queryer, role *models.Role) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO roles (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, role.ID, role.Name)
	if err != nil {
		return fmt.Errorf("failed to save role %s: %w", role.ID, err)
	}

	return nil
}
