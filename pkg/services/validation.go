package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/go-playground/validator/v10"
)

// NewValidator returns the validator used for definitions and API payloads.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// ValidateProcess checks struct tags and the stage graph: stage keys are
// unique and every route targets a stage of the process or $COMPLETE.
func ValidateProcess(validate *validator.Validate, process *models.Process) error {
	const op = "ValidateProcess"

	if process == nil {
		return NewValidationError(op, "PROCESS_REQUIRED", "process is required", ErrInvalidDefinition)
	}

	if err := validate.Struct(process); err != nil {
		return NewValidationError(op, "INVALID_PROCESS", describe(err), ErrInvalidDefinition)
	}

	if len(process.Stages) == 0 {
		return NewValidationError(op, "STAGES_REQUIRED", "process must have at least one stage", ErrInvalidDefinition)
	}

	keys := make(map[string]struct{}, len(process.Stages))

	for _, stage := range process.Stages {
		if stage.StageKey == models.CompleteStageKey {
			return NewValidationError(op, "RESERVED_STAGE_KEY",
				fmt.Sprintf("stage key %q is reserved", models.CompleteStageKey), ErrInvalidDefinition)
		}

		if _, dup := keys[stage.StageKey]; dup {
			return NewValidationError(op, "DUPLICATE_STAGE_KEY",
				fmt.Sprintf("stage key %q is used more than once", stage.StageKey), ErrInvalidDefinition)
		}

		keys[stage.StageKey] = struct{}{}

		for i, selector := range stage.ApproverSelectors {
			if selector.Target == nil {
				return NewValidationError(op, "INVALID_SELECTOR",
					fmt.Sprintf("stage %q selector %d has no target", stage.StageKey, i), ErrInvalidDefinition)
			}
		}
	}

	target := func(key string) bool {
		_, ok := keys[key]

		return ok || key == models.CompleteStageKey
	}

	for _, stage := range process.Stages {
		for _, condition := range stage.Conditions {
			if !target(condition.NextStageKey) {
				return NewValidationError(op, "UNKNOWN_ROUTE_TARGET",
					fmt.Sprintf("stage %q routes to unknown stage %q", stage.StageKey, condition.NextStageKey),
					ErrInvalidDefinition)
			}
		}

		if stage.DefaultNextStageKey != "" && !target(stage.DefaultNextStageKey) {
			return NewValidationError(op, "UNKNOWN_ROUTE_TARGET",
				fmt.Sprintf("stage %q defaults to unknown stage %q", stage.StageKey, stage.DefaultNextStageKey),
				ErrInvalidDefinition)
		}
	}

	return nil
}

// ValidateForm checks struct tags, field keys and section references.
func ValidateForm(validate *validator.Validate, form *models.Form) error {
	const op = "ValidateForm"

	if form == nil {
		return NewValidationError(op, "FORM_REQUIRED", "form is required", ErrInvalidDefinition)
	}

	if err := validate.Struct(form); err != nil {
		return NewValidationError(op, "INVALID_FORM", describe(err), ErrInvalidDefinition)
	}

	keys := make(map[string]string, len(form.FieldsByID))

	for id, field := range form.FieldsByID {
		if field == nil || field.ID != id {
			return NewValidationError(op, "FIELD_ID_MISMATCH",
				fmt.Sprintf("field entry %q does not match its id", id), ErrInvalidDefinition)
		}

		if other, dup := keys[field.Key]; dup {
			return NewValidationError(op, "DUPLICATE_FIELD_KEY",
				fmt.Sprintf("fields %q and %q share key %q", other, id, field.Key), ErrInvalidDefinition)
		}

		keys[field.Key] = id
	}

	for _, section := range form.Sections {
		if section == nil {
			continue
		}

		for _, id := range section.OrderedFieldIDs() {
			if _, ok := form.FieldsByID[id]; !ok {
				return NewValidationError(op, "UNKNOWN_FIELD",
					fmt.Sprintf("section %q places unknown field %q", section.ID, id), ErrInvalidDefinition)
			}
		}
	}

	return nil
}

// describe flattens validator errors into "Field: tag" pairs.
func describe(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	parts := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}

	return strings.Join(parts, ", ")
}
