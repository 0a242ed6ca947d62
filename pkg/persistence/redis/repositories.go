package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

// DirectoryRepository keeps users, departments and roles in three hashes.
type DirectoryRepository struct {
	client goredis.UniversalClient
	keys   keys
}

func (r *DirectoryRepository) Snapshot(ctx context.Context) (*models.Directory, error) {
	users, err := hashTable[models.User]{client: r.client, key: r.keys.users()}.all(ctx)
	if err != nil {
		return nil, err
	}

	departments, err := hashTable[models.Department]{client: r.client, key: r.keys.departments()}.all(ctx)
	if err != nil {
		return nil, err
	}

	roles, err := hashTable[models.Role]{client: r.client, key: r.keys.roles()}.all(ctx)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(users, func(a, b *models.User) int { return strings.Compare(a.ID, b.ID) })
	slices.SortFunc(departments, func(a, b *models.Department) int { return strings.Compare(a.ID, b.ID) })
	slices.SortFunc(roles, func(a, b *models.Role) int { return strings.Compare(a.ID, b.ID) })

	return &models.Directory{Users: users, Departments: departments, Roles: roles}, nil
}

func (r *DirectoryRepository) Replace(ctx context.Context, dir *models.Directory) error {
	users, err := encodeFields(dir.Users, func(u *models.User) string { return u.ID })
	if err != nil {
		return err
	}

	departments, err := encodeFields(dir.Departments, func(d *models.Department) string { return d.ID })
	if err != nil {
		return err
	}

	roles, err := encodeFields(dir.Roles, func(r *models.Role) string { return r.ID })
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.keys.users(), r.keys.departments(), r.keys.roles())

		if len(users) > 0 {
			pipe.HSet(ctx, r.keys.users(), users)
		}

		if len(departments) > 0 {
			pipe.HSet(ctx, r.keys.departments(), departments)
		}

		if len(roles) > 0 {
			pipe.HSet(ctx, r.keys.roles(), roles)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace directory: %w", err)
	}

	return nil
}

func (r *DirectoryRepository) SaveUser(ctx context.Context, user *models.User) error {
	return hashTable[models.User]{client: r.client, key: r.keys.users()}.set(ctx, user.ID, user)
}

func (r *DirectoryRepository) SaveDepartment(ctx context.Context, department *models.Department) error {
	return hashTable[models.Department]{client: r.client, key: r.keys.departments()}.set(ctx, department.ID, department)
}

func (r *DirectoryRepository) SaveRole(ctx context.Context, role *models.Role) error {
	return hashTable[models.Role]{client: r.client, key: r.keys.roles()}.set(ctx, role.ID, role)
}

// encodeFields flattens items into the field/value map HSet expects.
func encodeFields[T any](items []*T, id func(*T) string) (map[string]any, error) {
	fields := make(map[string]any, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", id(item), err)
		}

		fields[id(item)] = string(raw)
	}

	return fields, nil
}

type ProcessRepository struct {
	table hashTable[models.Process]
}

func (r *ProcessRepository) GetAll(ctx context.Context) ([]*models.Process, error) {
	processes, err := r.table.all(ctx)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(processes, func(a, b *models.Process) int { return strings.Compare(a.ID, b.ID) })

	return processes, nil
}

func (r *ProcessRepository) GetByID(ctx context.Context, id string) (*models.Process, error) {
	process, err := r.table.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if process == nil {
		return nil, persistence.ProcessNotFound("GetByID", id)
	}

	return process, nil
}

func (r *ProcessRepository) Save(ctx context.Context, process *models.Process) error {
	return r.table.set(ctx, process.ID, process)
}

func (r *ProcessRepository) Delete(ctx context.Context, id string) error {
	removed, err := r.table.remove(ctx, id)
	if err != nil {
		return err
	}

	if !removed {
		return persistence.ProcessNotFound("Delete", id)
	}

	return nil
}

type FormRepository struct {
	table hashTable[models.Form]
}

func (r *FormRepository) GetAll(ctx context.Context) ([]*models.Form, error) {
	forms, err := r.table.all(ctx)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(forms, func(a, b *models.Form) int { return strings.Compare(a.ID, b.ID) })

	return forms, nil
}

func (r *FormRepository) GetByID(ctx context.Context, id string) (*models.Form, error) {
	form, err := r.table.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if form == nil {
		return nil, persistence.FormNotFound("GetByID", id)
	}

	return form, nil
}

func (r *FormRepository) Save(ctx context.Context, form *models.Form) error {
	return r.table.set(ctx, form.ID, form)
}

func (r *FormRepository) Delete(ctx context.Context, id string) error {
	removed, err := r.table.remove(ctx, id)
	if err != nil {
		return err
	}

	if !removed {
		return persistence.FormNotFound("Delete", id)
	}

	return nil
}

// TaskRepository stores each task under its own key and tracks ids in a set.
type TaskRepository struct {
	client goredis.UniversalClient
	logger *slog.Logger
	keys   keys
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	task, err := r.read(ctx, r.client, id)
	if err != nil {
		return nil, err
	}

	if task == nil {
		return nil, persistence.TaskNotFound("GetByID", id)
	}

	return task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	created, err := r.client.SetNX(ctx, r.keys.task(task.ID), raw, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create task %s: %w", task.ID, err)
	}

	if !created {
		return persistence.NewEntityError("Create", "task", task.ID, persistence.ErrAlreadyExists)
	}

	if err := r.client.SAdd(ctx, r.keys.taskIndex(), task.ID).Err(); err != nil {
		return fmt.Errorf("failed to index task %s: %w", task.ID, err)
	}

	return nil
}

func (r *TaskRepository) Update(ctx context.Context, task *models.Task, expectedVersion int64) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	key := r.keys.task(task.ID)

	err = r.client.Watch(ctx, func(tx *goredis.Tx) error {
		stored, err := r.read(ctx, tx, task.ID)
		if err != nil {
			return err
		}

		if stored == nil {
			return persistence.TaskNotFound("Update", task.ID)
		}

		if stored.Version != expectedVersion {
			return persistence.VersionConflict(task.ID, expectedVersion, stored.Version)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)

			return nil
		})

		return err
	}, key)

	if errors.Is(err, goredis.TxFailedErr) {
		r.logger.WarnContext(ctx, "Task changed during update", "task_id", task.ID)

		current, readErr := r.read(ctx, r.client, task.ID)
		if readErr != nil {
			return readErr
		}

		if current == nil {
			return persistence.TaskNotFound("Update", task.ID)
		}

		return persistence.VersionConflict(task.ID, expectedVersion, current.Version)
	}

	if err != nil && !persistence.IsNotFound(err) && !persistence.IsVersionConflict(err) {
		return fmt.Errorf("failed to update task %s: %w", task.ID, err)
	}

	return err
}

func (r *TaskRepository) ListByRequester(ctx context.Context, requesterUserID string) ([]*models.Task, error) {
	return r.list(ctx, func(t *models.Task) bool { return t.RequesterUserID == requesterUserID })
}

func (r *TaskRepository) ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error) {
	return r.list(ctx, func(t *models.Task) bool { return t.Status == status })
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	removed, err := r.client.Del(ctx, r.keys.task(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}

	if err := r.client.SRem(ctx, r.keys.taskIndex(), id).Err(); err != nil {
		return fmt.Errorf("failed to unindex task %s: %w", id, err)
	}

	if removed == 0 {
		return persistence.TaskNotFound("Delete", id)
	}

	return nil
}

// read returns nil without error when the task does not exist.
func (r *TaskRepository) read(ctx context.Context, c goredis.Cmdable, id string) (*models.Task, error) {
	raw, err := c.Get(ctx, r.keys.task(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read task %s: %w", id, err)
	}

	var task models.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task %s: %w", id, err)
	}

	return &task, nil
}

func (r *TaskRepository) list(ctx context.Context, keep func(*models.Task) bool) ([]*models.Task, error) {
	ids, err := r.client.SMembers(ctx, r.keys.taskIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list task ids: %w", err)
	}

	tasks := []*models.Task{}
	if len(ids) == 0 {
		return tasks, nil
	}

	taskKeys := make([]string, len(ids))
	for i, id := range ids {
		taskKeys[i] = r.keys.task(id)
	}

	values, err := r.client.MGet(ctx, taskKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var task models.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task %s: %w", ids[i], err)
		}

		if keep(&task) {
			tasks = append(tasks, &task)
		}
	}

	slices.SortFunc(tasks, func(a, b *models.Task) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})

	return tasks, nil
}
