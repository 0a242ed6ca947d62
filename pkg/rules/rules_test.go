package rules

import (
	"testing"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestGetRule_DefaultsToInherit(t *testing.T) {
	t.Parallel()

	field := &models.Field{ID: "f1", Key: "title", Type: models.FieldText}
	assert.Equal(t, models.DefaultRule, GetRule(field, "review"))

	field.RulesByStage = map[string]models.FieldStageRule{
		"review": {Visible: models.VisibilityHide},
	}

	rule := GetRule(field, "review")
	assert.Equal(t, models.VisibilityHide, rule.Visible)
	assert.Equal(t, models.EditabilityInherit, rule.Editable)
	assert.Equal(t, models.RequirementInherit, rule.Required)
}

func TestEmptyRulesAreVisibleEditableAndDefaultRequired(t *testing.T) {
	t.Parallel()

	stages := []string{"draft", "review", "done", "unknown"}

	for _, required := range []bool{true, false} {
		field := &models.Field{ID: "f", Key: "k", Type: models.FieldText, RequiredDefault: required}

		for _, stage := range stages {
			assert.True(t, CanView(field, stage))
			assert.True(t, CanEdit(field, stage, "anyone", nil))
			assert.Equal(t, required, IsRequired(field, stage))
		}
	}
}

func TestCanView(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rule     models.FieldStageRule
		expected bool
	}{
		{"hide", models.FieldStageRule{Visible: models.VisibilityHide}, false},
		{"show", models.FieldStageRule{Visible: models.VisibilityShow}, true},
		{"inherit", models.FieldStageRule{Visible: models.VisibilityInherit}, true},
		{"unset", models.FieldStageRule{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			field := &models.Field{Key: "k", RulesByStage: map[string]models.FieldStageRule{"s": tt.rule}}
			assert.Equal(t, tt.expected, CanView(field, "s"))
		})
	}
}

func TestCanEdit(t *testing.T) {
	t.Parallel()

	approvers := []string{"alice"}

	tests := []struct {
		name     string
		rule     models.FieldStageRule
		actor    string
		expected bool
	}{
		{"hidden is never editable", models.FieldStageRule{Visible: models.VisibilityHide, Editable: models.EditabilityEditable}, "alice", false},
		{"readonly", models.FieldStageRule{Editable: models.EditabilityReadOnly}, "alice", false},
		{"editable", models.FieldStageRule{Editable: models.EditabilityEditable}, "bob", true},
		{"inherit", models.FieldStageRule{Editable: models.EditabilityInherit}, "bob", true},
		{
			"approver gate blocks non approver even when editable",
			models.FieldStageRule{Editable: models.EditabilityEditable, OnlyApproversCanEdit: true},
			"bob",
			false,
		},
		{
			"approver gate admits approver",
			models.FieldStageRule{Editable: models.EditabilityEditable, OnlyApproversCanEdit: true},
			"alice",
			true,
		},
		{
			"approver gate does not override readonly",
			models.FieldStageRule{Editable: models.EditabilityReadOnly, OnlyApproversCanEdit: true},
			"alice",
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			field := &models.Field{Key: "k", RulesByStage: map[string]models.FieldStageRule{"s": tt.rule}}
			assert.Equal(t, tt.expected, CanEdit(field, "s", tt.actor, approvers))
		})
	}
}

func TestIsRequired(t *testing.T) {
	t.Parallel()

	field := &models.Field{
		Key:             "k",
		RequiredDefault: true,
		RulesByStage: map[string]models.FieldStageRule{
			"optional": {Required: models.RequirementOptional},
			"required": {Required: models.RequirementRequired},
			"inherit":  {Required: models.RequirementInherit},
		},
	}

	assert.False(t, IsRequired(field, "optional"))
	assert.True(t, IsRequired(field, "required"))
	assert.True(t, IsRequired(field, "inherit"))

	field.RequiredDefault = false
	assert.False(t, IsRequired(field, "inherit"))
	assert.True(t, IsRequired(field, "required"))
}

func TestEvaluate_FollowsLayoutOrder(t *testing.T) {
	t.Parallel()

	form := &models.Form{
		ID: "form",
		Sections: []*models.Section{
			{ID: "s1", FieldIDs: []string{"f2"}},
			{ID: "s2", Columns: []models.Column{{ID: "c1", FieldIDs: []string{"f1"}}}},
		},
		FieldsByID: map[string]*models.Field{
			"f1": {ID: "f1", Key: "amount", Type: models.FieldNumber},
			"f2": {
				ID: "f2", Key: "note", Type: models.FieldText,
				RulesByStage: map[string]models.FieldStageRule{"review": {Editable: models.EditabilityReadOnly}},
			},
			"f3": {ID: "f3", Key: "secret", Type: models.FieldText, RequiredDefault: true},
		},
	}

	access := Evaluate(form, "review", "alice", nil)

	assert.Equal(t, []Access{
		{FieldID: "f2", Key: "note", Visible: true, Editable: false, Required: false},
		{FieldID: "f1", Key: "amount", Visible: true, Editable: true, Required: false},
		{FieldID: "f3", Key: "secret", Visible: true, Editable: true, Required: true},
	}, access)

	assert.Equal(t, map[string]struct{}{"amount": {}, "secret": {}}, EditableKeys(form, "review", "alice", nil))
}
