package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
)

// definitionTable reads and writes definition documents of one table. The
// table has the columns id, name, version, document and updated_at.
type definitionTable[T any] struct {
	db    *sql.DB
	table string
}

func (d definitionTable[T]) all(ctx context.Context) ([]*T, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT document FROM "+d.table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", d.table, err)
	}
	defer func() { _ = rows.Close() }()

	items := []*T{}

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", d.table, err)
		}

		var item T
		if err := json.Unmarshal(document, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s document: %w", d.table, err)
		}

		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", d.table, err)
	}

	return items, nil
}

// byID returns nil without error when no row matches.
func (d definitionTable[T]) byID(ctx context.Context, id string) (*T, error) {
	var document []byte

	err := d.db.QueryRowContext(ctx, "SELECT document FROM "+d.table+" WHERE id = $1", id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query %s %s: %w", d.table, id, err)
	}

	var item T
	if err := json.Unmarshal(document, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s document: %w", d.table, err)
	}

	return &item, nil
}

func (d definitionTable[T]) save(ctx context.Context, id, name string, version int, updatedAt time.Time, item *T) error {
	document, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", d.table, err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO `+d.table+` (id, name, version, document, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			version = EXCLUDED.version,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
	`, id, name, version, document, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to save %s %s: %w", d.table, id, err)
	}

	return nil
}

// remove reports false when no row matched.
func (d definitionTable[T]) remove(ctx context.Context, id string) (bool, error) {
	result, err := d.db.ExecContext(ctx, "DELETE FROM "+d.table+" WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s %s: %w", d.table, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

// ProcessRepository handles process definition operations.
type ProcessRepository struct {
	logger *slog.Logger
	table  definitionTable[models.Process]
}

// NewProcessRepository creates a new process repository.
func NewProcessRepository(db *sql.DB, logger *slog.Logger) *ProcessRepository {
	return &ProcessRepository{logger: logger, table: definitionTable[models.Process]{db: db, table: "processes"}}
}

func (r *ProcessRepository) GetAll(ctx context.Context) ([]*models.Process, error) {
	return r.table.all(ctx)
}

func (r *ProcessRepository) GetByID(ctx context.Context, id string) (*models.Process, error) {
	process, err := r.table.byID(ctx, id)
	if err != nil {
		return nil, err
	}

	if process == nil {
		return nil, persistence.ProcessNotFound("GetByID", id)
	}

	return process, nil
}

func (r *ProcessRepository) Save(ctx context.Context, process *models.Process) error {
	return r.table.save(ctx, process.ID, process.Name, process.Version, process.UpdatedAt, process)
}

func (r *ProcessRepository) Delete(ctx context.Context, id string) error {
	removed, err := r.table.remove(ctx, id)
	if err != nil {
		return err
	}

	if !removed {
		return persistence.ProcessNotFound("Delete", id)
	}

	r.logger.InfoContext(ctx, "Process deleted", "process_id", id)

	return nil
}

// FormRepository handles form definition operations.
type FormRepository struct {
	logger *slog.Logger
	table  definitionTable[models.Form]
}

// NewFormRepository creates a new form repository.
func NewFormRepository(db *sql.DB, logger *slog.Logger) *FormRepository {
	return &FormRepository{logger: logger, table: definitionTable[models.Form]{db: db, table: "forms"}}
}

func (r *FormRepository) GetAll(ctx context.Context) ([]*models.Form, error) {
	return r.table.all(ctx)
}

func (r *FormRepository) GetByID(ctx context.Context, id string) (*models.Form, error) {
	form, err := r.table.byID(ctx, id)
	if err != nil {
		return nil, err
	}

	if form == nil {
		return nil, persistence.FormNotFound("GetByID", id)
	}

	return form, nil
}

func (r *FormRepository) Save(ctx context.Context, form *models.Form) error {
	return r.table.save(ctx, form.ID, form.Name, form.Version, form.UpdatedAt, form)
}

func (r *FormRepository) Delete(ctx context.Context, id string) error {
	removed, err := r.table.remove(ctx, id)
	if err != nil {
		return err
	}

	if !removed {
		return persistence.FormNotFound("Delete", id)
	}

	r.logger.InfoContext(ctx, "Form deleted", "form_id", id)

	return nil
}
