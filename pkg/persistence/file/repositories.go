package file

import (
	"context"
	"slices"
	"strings"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
)

// DirectoryRepository keeps the whole directory in a single document.
type DirectoryRepository struct {
	p    *Persistence
	path string
}

func (r *DirectoryRepository) Snapshot(_ context.Context) (*models.Directory, error) {
	dir, err := readJSON[models.Directory](r.path)
	if err != nil {
		return nil, err
	}

	if dir == nil {
		return &models.Directory{
			Users:       []*models.User{},
			Departments: []*models.Department{},
			Roles:       []*models.Role{},
		}, nil
	}

	return dir, nil
}

func (r *DirectoryRepository) Replace(_ context.Context, dir *models.Directory) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return writeJSON(r.path, dir)
}

func (r *DirectoryRepository) SaveUser(ctx context.Context, user *models.User) error {
	return r.modify(ctx, func(dir *models.Directory) {
		dir.Users = upsert(dir.Users, user, func(u *models.User) string { return u.ID })
	})
}

func (r *DirectoryRepository) SaveDepartment(ctx context.Context, department *models.Department) error {
	return r.modify(ctx, func(dir *models.Directory) {
		dir.Departments = upsert(dir.Departments, department, func(d *models.Department) string { return d.ID })
	})
}

func (r *DirectoryRepository) SaveRole(ctx context.Context, role *models.Role) error {
	return r.modify(ctx, func(dir *models.Directory) {
		dir.Roles = upsert(dir.Roles, role, func(r *models.Role) string { return r.ID })
	})
}

func (r *DirectoryRepository) modify(ctx context.Context, apply func(*models.Directory)) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	dir, err := r.Snapshot(ctx)
	if err != nil {
		return err
	}

	apply(dir)

	return writeJSON(r.path, dir)
}

// upsert replaces the entry sharing item's ID or appends item.
func upsert[T any](items []*T, item *T, id func(*T) string) []*T {
	for i, existing := range items {
		if existing != nil && id(existing) == id(item) {
			items[i] = item

			return items
		}
	}

	return append(items, item)
}

// ProcessRepository handles process definition documents.
type ProcessRepository struct {
	p    *Persistence
	docs documents[models.Process]
}

func (r *ProcessRepository) GetAll(_ context.Context) ([]*models.Process, error) {
	processes, err := r.docs.all()
	if err != nil {
		return nil, err
	}

	slices.SortFunc(processes, func(a, b *models.Process) int { return strings.Compare(a.ID, b.ID) })

	return processes, nil
}

func (r *ProcessRepository) GetByID(_ context.Context, id string) (*models.Process, error) {
	process, err := r.docs.read(id)
	if err != nil {
		return nil, err
	}

	if process == nil {
		return nil, persistence.ProcessNotFound("GetByID", id)
	}

	return process, nil
}

func (r *ProcessRepository) Save(_ context.Context, process *models.Process) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.docs.write(process.ID, process)
}

func (r *ProcessRepository) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	removed, err := r.docs.remove(id)
	if err != nil {
		return err
	}

	if !removed {
		return persistence.ProcessNotFound("Delete", id)
	}

	return nil
}

// FormRepository handles form definition documents.
type FormRepository struct {
	p    *Persistence
	docs documents[models.Form]
}

func (r *FormRepository) GetAll(_ context.Context) ([]*models.Form, error) {
	forms, err := r.docs.all()
	if err != nil {
		return nil, err
	}

	slices.SortFunc(forms, func(a, b *models.Form) int { return strings.Compare(a.ID, b.ID) })

	return forms, nil
}

func (r *FormRepository) GetByID(_ context.Context, id string) (*models.Form, error) {
	form, err := r.docs.read(id)
	if err != nil {
		return nil, err
	}

	if form == nil {
		return nil, persistence.FormNotFound("GetByID", id)
	}

	return form, nil
}

func (r *FormRepository) Save(_ context.Context, form *models.Form) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	return r.docs.write(form.ID, form)
}

func (r *FormRepository) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	removed, err := r.docs.remove(id)
	if err != nil {
		return err
	}

	if !removed {
		return persistence.FormNotFound("Delete", id)
	}

	return nil
}

// TaskRepository handles task documents. Version checks run under the
// persistence mutex.
type TaskRepository struct {
	p    *Persistence
	docs documents[models.Task]
}

func (r *TaskRepository) GetByID(_ context.Context, id string) (*models.Task, error) {
	task, err := r.docs.read(id)
	if err != nil {
		return nil, err
	}

	if task == nil {
		return nil, persistence.TaskNotFound("GetByID", id)
	}

	return task, nil
}

func (r *TaskRepository) Create(_ context.Context, task *models.Task) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	existing, err := r.docs.read(task.ID)
	if err != nil {
		return err
	}

	if existing != nil {
		return persistence.NewEntityError("Create", "task", task.ID, persistence.ErrAlreadyExists)
	}

	return r.docs.write(task.ID, task)
}

func (r *TaskRepository) Update(_ context.Context, task *models.Task, expectedVersion int64) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	stored, err := r.docs.read(task.ID)
	if err != nil {
		return err
	}

	if stored == nil {
		return persistence.TaskNotFound("Update", task.ID)
	}

	if stored.Version != expectedVersion {
		return persistence.VersionConflict(task.ID, expectedVersion, stored.Version)
	}

	return r.docs.write(task.ID, task)
}

func (r *TaskRepository) ListByRequester(_ context.Context, requesterUserID string) ([]*models.Task, error) {
	return r.list(func(t *models.Task) bool { return t.RequesterUserID == requesterUserID })
}

func (r *TaskRepository) ListByStatus(_ context.Context, status models.TaskStatus) ([]*models.Task, error) {
	return r.list(func(t *models.Task) bool { return t.Status == status })
}

func (r *TaskRepository) Delete(_ context.Context, id string) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()

	removed, err := r.docs.remove(id)
	if err != nil {
		return err
	}

	if !removed {
		return persistence.TaskNotFound("Delete", id)
	}

	return nil
}

func (r *TaskRepository) list(keep func(*models.Task) bool) ([]*models.Task, error) {
	all, err := r.docs.all()
	if err != nil {
		return nil, err
	}

	tasks := make([]*models.Task, 0, len(all))
	for _, t := range all {
		if keep(t) {
			tasks = append(tasks, t)
		}
	}

	slices.SortFunc(tasks, func(a, b *models.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return tasks, nil
}
