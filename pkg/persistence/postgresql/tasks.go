package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
)

// TaskRepository handles task operations. The full task is kept in the
// document column; the other columns exist for filtering and version checks.
type TaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sql.DB, logger *slog.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var document []byte

	err := r.db.QueryRowContext(ctx, "SELECT document FROM tasks WHERE id = $1", id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.TaskNotFound("GetByID", id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query task %s: %w", id, err)
	}

	return decodeTask(document)
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	document, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, form_id, process_id, requester_user_id, current_stage_key,
			status, version, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, task.ID, task.FormID, task.ProcessID, task.RequesterUserID, task.CurrentStageKey,
		string(task.Status), task.Version, document, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewEntityError("Create", "task", task.ID, persistence.ErrAlreadyExists)
	}

	return nil
}

func (r *TaskRepository) Update(ctx context.Context, task *models.Task, expectedVersion int64) error {
	document, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET
			current_stage_key = $2,
			status = $3,
			version = $4,
			document = $5,
			updated_at = $6
		WHERE id = $1 AND version = $7
	`, task.ID, task.CurrentStageKey, string(task.Status), task.Version, document, task.UpdatedAt, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", task.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected > 0 {
		return nil
	}

	var stored int64

	err = r.db.QueryRowContext(ctx, "SELECT version FROM tasks WHERE id = $1", task.ID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.TaskNotFound("Update", task.ID)
	}

	if err != nil {
		return fmt.Errorf("failed to query task version %s: %w", task.ID, err)
	}

	r.logger.WarnContext(ctx, "Task version conflict",
		"task_id", task.ID, "expected_version", expectedVersion, "stored_version", stored)

	return persistence.VersionConflict(task.ID, expectedVersion, stored)
}

func (r *TaskRepository) ListByRequester(ctx context.Context, requesterUserID string) ([]*models.Task, error) {
	return r.list(ctx, "requester_user_id = $1", requesterUserID)
}

func (r *TaskRepository) ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error) {
	return r.list(ctx, "status = $1", string(status))
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.TaskNotFound("Delete", id)
	}

	return nil
}

func (r *TaskRepository) list(ctx context.Context, where string, arg any) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT document FROM tasks WHERE "+where+" ORDER BY created_at, id", arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*models.Task{}

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		task, err := decodeTask(document)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

func decodeTask(document []byte) (*models.Task, error) {
	var task models.Task
	if err := json.Unmarshal(document, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task document: %w", err)
	}

	return &task, nil
}
