package models

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidEnumValue is returned when a closed enum receives an unknown value.
var ErrInvalidEnumValue = errors.New("invalid enum value")

func parseEnum[T ~string](kind string, raw []byte, allowed ...T) (T, error) {
	v := T(raw)
	if slices.Contains(allowed, v) {
		return v, nil
	}

	return "", fmt.Errorf("%w: %s %q", ErrInvalidEnumValue, kind, string(raw))
}

// SelectorType tags the variant of an ApproverSelector.
type SelectorType string

const (
	SelectorUser       SelectorType = "USER"
	SelectorDepartment SelectorType = "DEPARTMENT"
	SelectorRole       SelectorType = "ROLE"
	SelectorDeptRole   SelectorType = "DEPT_ROLE"
)

func (t *SelectorType) UnmarshalText(b []byte) error {
	v, err := parseEnum("selector type", b, SelectorUser, SelectorDepartment, SelectorRole, SelectorDeptRole)
	if err != nil {
		return err
	}

	*t = v

	return nil
}

// ApprovalMode controls how many approvals a stage needs before it advances.
type ApprovalMode string

const (
	ApprovalModeAnyOne ApprovalMode = "ANY_ONE"
	ApprovalModeAll    ApprovalMode = "ALL"
)

func (m *ApprovalMode) UnmarshalText(b []byte) error {
	// Stored processes predating the field carry an empty mode.
	if len(b) == 0 {
		*m = ApprovalModeAnyOne

		return nil
	}

	v, err := parseEnum("approval mode", b, ApprovalModeAnyOne, ApprovalModeAll)
	if err != nil {
		return err
	}

	*m = v

	return nil
}

// ConditionOperator is the comparison applied by a StageCondition.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "EQUALS"
	OperatorNotEquals   ConditionOperator = "NOT_EQUALS"
	OperatorContains    ConditionOperator = "CONTAINS"
	OperatorGreaterThan ConditionOperator = "GREATER_THAN"
	OperatorLessThan    ConditionOperator = "LESS_THAN"
	OperatorIsEmpty     ConditionOperator = "IS_EMPTY"
	OperatorIsNotEmpty  ConditionOperator = "IS_NOT_EMPTY"
)

func (o *ConditionOperator) UnmarshalText(b []byte) error {
	v, err := parseEnum("condition operator", b,
		OperatorEquals, OperatorNotEquals, OperatorContains,
		OperatorGreaterThan, OperatorLessThan, OperatorIsEmpty, OperatorIsNotEmpty,
	)
	if err != nil {
		return err
	}

	*o = v

	return nil
}

// Visibility is the per-stage visibility override of a field.
type Visibility string

const (
	VisibilityInherit Visibility = "INHERIT"
	VisibilityShow    Visibility = "SHOW"
	VisibilityHide    Visibility = "HIDE"
)

func (v *Visibility) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*v = VisibilityInherit

		return nil
	}

	parsed, err := parseEnum("visibility", b, VisibilityInherit, VisibilityShow, VisibilityHide)
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}

// Editability is the per-stage editability override of a field.
type Editability string

const (
	EditabilityInherit  Editability = "INHERIT"
	EditabilityEditable Editability = "EDITABLE"
	EditabilityReadOnly Editability = "READONLY"
)

func (e *Editability) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*e = EditabilityInherit

		return nil
	}

	parsed, err := parseEnum("editability", b, EditabilityInherit, EditabilityEditable, EditabilityReadOnly)
	if err != nil {
		return err
	}

	*e = parsed

	return nil
}

// Requirement is the per-stage required-ness override of a field.
type Requirement string

const (
	RequirementInherit  Requirement = "INHERIT"
	RequirementRequired Requirement = "REQUIRED"
	RequirementOptional Requirement = "OPTIONAL"
)

func (r *Requirement) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*r = RequirementInherit

		return nil
	}

	parsed, err := parseEnum("requirement", b, RequirementInherit, RequirementRequired, RequirementOptional)
	if err != nil {
		return err
	}

	*r = parsed

	return nil
}

// FieldType is the input kind of a form field.
type FieldType string

const (
	FieldText       FieldType = "text"
	FieldTextarea   FieldType = "textarea"
	FieldNumber     FieldType = "number"
	FieldDate       FieldType = "date"
	FieldSelect     FieldType = "select"
	FieldCheckbox   FieldType = "checkbox"
	FieldRadio      FieldType = "radio"
	FieldPeople     FieldType = "people"
	FieldAttachment FieldType = "attachment"
)

func (t *FieldType) UnmarshalText(b []byte) error {
	v, err := parseEnum("field type", b,
		FieldText, FieldTextarea, FieldNumber, FieldDate, FieldSelect,
		FieldCheckbox, FieldRadio, FieldPeople, FieldAttachment,
	)
	if err != nil {
		return err
	}

	*t = v

	return nil
}

// IsTextLike reports whether values of this type are free text.
func (t FieldType) IsTextLike() bool {
	return t == FieldText || t == FieldTextarea
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusDraft      TaskStatus = "DRAFT"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusRejected   TaskStatus = "REJECTED"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

func (s *TaskStatus) UnmarshalText(b []byte) error {
	v, err := parseEnum("task status", b,
		TaskStatusDraft, TaskStatusInProgress, TaskStatusRejected, TaskStatusCompleted,
	)
	if err != nil {
		return err
	}

	*s = v

	return nil
}

// IsTerminal reports whether no further actions are permitted.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusRejected
}

// ApprovalAction is the decision recorded by a TaskApproval.
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "APPROVE"
	ActionReject  ApprovalAction = "REJECT"
)

func (a *ApprovalAction) UnmarshalText(b []byte) error {
	v, err := parseEnum("approval action", b, ActionApprove, ActionReject)
	if err != nil {
		return err
	}

	*a = v

	return nil
}
