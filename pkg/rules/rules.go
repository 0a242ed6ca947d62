// Package rules evaluates per-stage field rules: visibility, editability and
// required-ness of form fields for a given stage and actor.
package rules

import (
	"slices"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
)

// GetRule returns the field's rule for stageKey, or the all-INHERIT default.
// Unset rule members are reported as INHERIT.
func GetRule(field *models.Field, stageKey string) models.FieldStageRule {
	if field == nil {
		return models.DefaultRule
	}

	rule, ok := field.RulesByStage[stageKey]
	if !ok {
		return models.DefaultRule
	}

	if rule.Visible == "" {
		rule.Visible = models.VisibilityInherit
	}

	if rule.Editable == "" {
		rule.Editable = models.EditabilityInherit
	}

	if rule.Required == "" {
		rule.Required = models.RequirementInherit
	}

	return rule
}

// CanView reports whether the field is shown at stageKey. Fields are visible
// unless hidden explicitly.
func CanView(field *models.Field, stageKey string) bool {
	switch GetRule(field, stageKey).Visible {
	case models.VisibilityHide:
		return false
	case models.VisibilityShow, models.VisibilityInherit:
		return true
	default:
		return true
	}
}

// CanEdit reports whether actorUserID may change the field at stageKey.
// Hidden fields are never editable; onlyApproversCanEdit restricts editing to
// the stage's resolved approvers.
func CanEdit(field *models.Field, stageKey, actorUserID string, approvers []string) bool {
	if !CanView(field, stageKey) {
		return false
	}

	rule := GetRule(field, stageKey)
	if rule.OnlyApproversCanEdit && !slices.Contains(approvers, actorUserID) {
		return false
	}

	switch rule.Editable {
	case models.EditabilityReadOnly:
		return false
	case models.EditabilityEditable, models.EditabilityInherit:
		return true
	default:
		return true
	}
}

// IsRequired reports whether the field must be filled at stageKey.
func IsRequired(field *models.Field, stageKey string) bool {
	switch GetRule(field, stageKey).Required {
	case models.RequirementRequired:
		return true
	case models.RequirementOptional:
		return false
	case models.RequirementInherit:
		return field != nil && field.RequiredDefault
	default:
		return field != nil && field.RequiredDefault
	}
}

// Access is the evaluated rule set of one field for a stage and actor.
type Access struct {
	FieldID  string `json:"fieldId"`
	Key      string `json:"key"`
	Visible  bool   `json:"visible"`
	Editable bool   `json:"editable"`
	Required bool   `json:"required"`
}

// Evaluate computes Access for every field of form in layout order.
func Evaluate(form *models.Form, stageKey, actorUserID string, approvers []string) []Access {
	fields := form.OrderedFields()
	access := make([]Access, 0, len(fields))

	for _, field := range fields {
		access = append(access, Access{
			FieldID:  field.ID,
			Key:      field.Key,
			Visible:  CanView(field, stageKey),
			Editable: CanEdit(field, stageKey, actorUserID, approvers),
			Required: IsRequired(field, stageKey),
		})
	}

	return access
}

// EditableKeys returns the data keys actorUserID may change at stageKey.
func EditableKeys(form *models.Form, stageKey, actorUserID string, approvers []string) map[string]struct{} {
	keys := make(map[string]struct{})

	for _, field := range form.OrderedFields() {
		if CanEdit(field, stageKey, actorUserID, approvers) {
			keys[field.Key] = struct{}{}
		}
	}

	return keys
}
