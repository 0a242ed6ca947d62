package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidSubmission is matched by every *ValidationError.
var ErrInvalidSubmission = errors.New("invalid submission")

// FieldError describes one rejected data key.
type FieldError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// ValidationError lists the data keys that failed the stage schema.
type ValidationError struct {
	StageKey string
	Fields   []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Key+": "+f.Message)
	}

	return fmt.Sprintf("stage %s: %v: %s", e.StageKey, ErrInvalidSubmission, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidSubmission
}

func baseType(t models.FieldType) string {
	switch t {
	case models.FieldNumber:
		return "number"
	case models.FieldCheckbox:
		return "boolean"
	case models.FieldText, models.FieldTextarea, models.FieldDate, models.FieldSelect,
		models.FieldRadio, models.FieldPeople, models.FieldAttachment:
		return "string"
	default:
		return ""
	}
}

// BuildSchema returns the JSON schema task data must satisfy when
// actorUserID acts at stageKey.
//
// Hidden fields are left out. Visible fields the actor cannot edit accept any
// value. Editable required fields must be present and non-null, and text-like
// ones non-empty. Editable optional fields also accept null.
func BuildSchema(form *models.Form, stageKey, actorUserID string, approvers []string) *models.JSONSchema {
	schema := &models.JSONSchema{
		Schema:     "http://json-schema.org/draft-07/schema#",
		Type:       "object",
		Properties: make(map[string]*models.Property),
		Required:   []string{},
	}

	if form != nil {
		schema.Title = form.Name
	}

	for _, field := range form.OrderedFields() {
		if !CanView(field, stageKey) {
			continue
		}

		prop := &models.Property{Description: field.Label}
		schema.Properties[field.Key] = prop

		if !CanEdit(field, stageKey, actorUserID, approvers) {
			continue
		}

		base := baseType(field.Type)
		if base == "" {
			continue
		}

		if !IsRequired(field, stageKey) {
			prop.Types = models.SchemaTypes{base, "null"}

			continue
		}

		prop.Types = models.SchemaTypes{base}
		schema.Required = append(schema.Required, field.Key)

		if field.Type.IsTextLike() {
			one := 1
			prop.MinLength = &one
		}
	}

	return schema
}

// Validate checks data against BuildSchema. It returns a *ValidationError
// when the data does not conform.
func Validate(form *models.Form, stageKey, actorUserID string, approvers []string, data map[string]any) error {
	schema := BuildSchema(form, stageKey, actorUserID, approvers)

	if data == nil {
		data = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("validate stage %s: %w", stageKey, err)
	}

	if result.Valid() {
		return nil
	}

	verr := &ValidationError{StageKey: stageKey}

	for _, re := range result.Errors() {
		key := re.Field()
		if re.Type() == "required" {
			if prop, ok := re.Details()["property"].(string); ok {
				key = prop
			}
		}

		verr.Fields = append(verr.Fields, FieldError{Key: key, Message: re.Description()})
	}

	sort.SliceStable(verr.Fields, func(i, j int) bool {
		return verr.Fields[i].Key < verr.Fields[j].Key
	})

	return verr
}
