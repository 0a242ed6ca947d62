package services

import (
	"context"
	"fmt"
	"time"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/otelhelper"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Form manages form definitions. A form must reference an existing process.
type Form struct {
	persistence persistence.Persistence
	validate    *validator.Validate
	tracer      trace.Tracer
}

// NewForm creates a new form service.
func NewForm(persistence persistence.Persistence, validate *validator.Validate, tracer trace.Tracer) *Form {
	return &Form{
		persistence: persistence,
		validate:    validate,
		tracer:      tracer,
	}
}

func (f *Form) List(ctx context.Context) ([]*models.Form, error) {
	return f.persistence.FormRepository().GetAll(ctx)
}

func (f *Form) FetchByID(ctx context.Context, id string) (*models.Form, error) {
	return f.persistence.FormRepository().GetByID(ctx, id)
}

func (f *Form) Create(ctx context.Context, form *models.Form) (*models.Form, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "form.create")
	defer span.End()

	if form.ID == "" {
		form.ID = uuid.New().String()
	}

	form.Version = 1
	form.UpdatedAt = time.Now().UTC()

	_, err := f.persistence.FormRepository().GetByID(ctx, form.ID)
	if err == nil {
		return nil, persistence.NewEntityError("Create", "form", form.ID, persistence.ErrAlreadyExists)
	}

	if !persistence.IsNotFound(err) {
		return nil, err
	}

	if err := f.save(ctx, form); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.FormIDKey, form.ID))

	return form, nil
}

func (f *Form) Update(ctx context.Context, id string, form *models.Form) (*models.Form, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "form.update", attribute.String(otelhelper.FormIDKey, id))
	defer span.End()

	existing, err := f.persistence.FormRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	form.ID = id
	form.Version = existing.Version + 1
	form.UpdatedAt = time.Now().UTC()

	if err := f.save(ctx, form); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return form, nil
}

func (f *Form) Delete(ctx context.Context, id string) error {
	return f.persistence.FormRepository().Delete(ctx, id)
}

func (f *Form) save(ctx context.Context, form *models.Form) error {
	if err := ValidateForm(f.validate, form); err != nil {
		return err
	}

	_, err := f.persistence.ProcessRepository().GetByID(ctx, form.ProcessID)
	if persistence.IsNotFound(err) {
		return NewValidationError("SaveForm", "UNKNOWN_PROCESS",
			fmt.Sprintf("process %q does not exist", form.ProcessID), ErrUnknownProcess)
	}

	if err != nil {
		return err
	}

	if err := f.persistence.FormRepository().Save(ctx, form); err != nil {
		return fmt.Errorf("failed to save form: %w", err)
	}

	return nil
}
