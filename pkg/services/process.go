package services

import (
	"context"
	"fmt"
	"time"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/approvers"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/otelhelper"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/routing"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Process manages process definitions.
type Process struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	tracer      trace.Tracer
}

// NewProcess creates a new process service.
func NewProcess(persistence persistence.Persistence, validate *validator.Validate, tracer trace.Tracer) *Process {
	return &Process{
		persistence: persistence,
		validate:    validate,
		tracer:      tracer,
	}
}

// HealthCheck checks the health of the persistence layer.
func (p *Process) HealthCheck(ctx context.Context) (string, bool) {
	if p.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := p.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (p *Process) List(ctx context.Context) ([]*models.Process, error) {
	return p.persistence.ProcessRepository().GetAll(ctx)
}

func (p *Process) FetchByID(ctx context.Context, id string) (*models.Process, error) {
	return p.persistence.ProcessRepository().GetByID(ctx, id)
}

// Create stores a new process at version 1. An empty ID is generated.
func (p *Process) Create(ctx context.Context, process *models.Process) (*models.Process, error) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "process.create")
	defer span.End()

	if process.ID == "" {
		process.ID = uuid.New().String()
	}

	process.Version = 1
	process.UpdatedAt = time.Now().UTC()
	process.Stages = models.SortStages(process.Stages)

	if err := ValidateProcess(p.validate, process); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	_, err := p.persistence.ProcessRepository().GetByID(ctx, process.ID)
	if err == nil {
		return nil, persistence.NewEntityError("Create", "process", process.ID, persistence.ErrAlreadyExists)
	}

	if !persistence.IsNotFound(err) {
		return nil, err
	}

	if err := p.persistence.ProcessRepository().Save(ctx, process); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create process: %w", err)
	}

	span.SetAttributes(attribute.String(otelhelper.ProcessIDKey, process.ID))

	return process, nil
}

// Update replaces the process and bumps its version. Running tasks keep the
// approvers they resolved at creation.
func (p *Process) Update(ctx context.Context, id string, process *models.Process) (*models.Process, error) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "process.update",
		attribute.String(otelhelper.ProcessIDKey, id))
	defer span.End()

	existing, err := p.persistence.ProcessRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	process.ID = id
	process.Version = existing.Version + 1
	process.UpdatedAt = time.Now().UTC()
	process.Stages = models.SortStages(process.Stages)

	if err := ValidateProcess(p.validate, process); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if err := p.persistence.ProcessRepository().Save(ctx, process); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to update process: %w", err)
	}

	return process, nil
}

func (p *Process) Delete(ctx context.Context, id string) error {
	return p.persistence.ProcessRepository().Delete(ctx, id)
}

// PreviewApprovers resolves every stage of the stored process against the
// current directory, as task creation would.
func (p *Process) PreviewApprovers(ctx context.Context, id, requesterUserID string) (map[string][]string, error) {
	process, err := p.persistence.ProcessRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	directory, err := p.persistence.DirectoryRepository().Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load directory: %w", err)
	}

	reqCtx := approvers.RequesterContext{RequesterUserID: requesterUserID}
	if u := directory.UserByID(requesterUserID); u != nil {
		reqCtx.RequesterDepartmentID = u.DepartmentID
	}

	return approvers.Resolve(process, directory, reqCtx), nil
}

// RoutePreview is where a task on StageKey would go with the given data.
type RoutePreview struct {
	StageKey     string `json:"stageKey"`
	NextStageKey string `json:"nextStageKey,omitempty"`
	Completes    bool   `json:"completes"`
}

// PreviewRoute evaluates the routing of stageKey for data without touching any task.
func (p *Process) PreviewRoute(ctx context.Context, id, stageKey string, data map[string]any) (*RoutePreview, error) {
	process, err := p.persistence.ProcessRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if process.StageByKey(stageKey) == nil {
		return nil, NewValidationError("PreviewRoute", "UNKNOWN_STAGE",
			fmt.Sprintf("process %s has no stage %q", id, stageKey), ErrInvalidRequest)
	}

	preview := &RoutePreview{StageKey: stageKey}

	next, ok := routing.NextStageKey(stageKey, process.Stages, data)
	if !ok || routing.IsComplete(next) {
		preview.Completes = true

		return preview, nil
	}

	preview.NextStageKey = next

	return preview, nil
}
