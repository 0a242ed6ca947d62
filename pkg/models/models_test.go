package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproverSelector_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		selector ApproverSelector
		wire     string
	}{
		{
			name:     "user",
			selector: ByUsers("u1", "u2"),
			wire:     `{"type":"USER","userIds":["u1","u2"],"dedupe":true}`,
		},
		{
			name:     "department",
			selector: ByDepartments("d1"),
			wire:     `{"type":"DEPARTMENT","departmentIds":["d1"],"dedupe":true}`,
		},
		{
			name:     "role",
			selector: ByRoles("r1"),
			wire:     `{"type":"ROLE","roleIds":["r1"],"dedupe":true}`,
		},
		{
			name:     "department and role",
			selector: ByDeptRoles(DeptRolePair{DepartmentID: "d1", RoleID: "r1"}),
			wire:     `{"type":"DEPT_ROLE","deptRolePairs":[{"departmentId":"d1","roleId":"r1"}],"dedupe":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body, err := json.Marshal(tt.selector)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wire, string(body))

			var decoded ApproverSelector
			require.NoError(t, json.Unmarshal([]byte(tt.wire), &decoded))
			assert.Equal(t, tt.selector, decoded)
		})
	}
}

func TestApproverSelector_IgnoresOtherVariantFields(t *testing.T) {
	t.Parallel()

	var s ApproverSelector
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ROLE","roleIds":["r1"],"userIds":["u9"],"dedupe":false}`), &s))
	assert.Equal(t, ApproverSelector{Target: RoleTarget{RoleIDs: []string{"r1"}}}, s)
}

func TestApproverSelector_Invalid(t *testing.T) {
	t.Parallel()

	var s ApproverSelector
	require.ErrorIs(t, json.Unmarshal([]byte(`{"type":"TEAM"}`), &s), ErrInvalidEnumValue)

	_, err := json.Marshal(ApproverSelector{})
	require.Error(t, err)
}

func TestEnums_RejectUnknownValues(t *testing.T) {
	t.Parallel()

	var stage Stage
	err := json.Unmarshal([]byte(`{"name":"A","stageKey":"a","approvalMode":"MAJORITY"}`), &stage)
	require.ErrorIs(t, err, ErrInvalidEnumValue)

	var condition StageCondition
	err = json.Unmarshal([]byte(`{"fieldKey":"x","operator":"BETWEEN","nextStageKey":"b"}`), &condition)
	require.ErrorIs(t, err, ErrInvalidEnumValue)

	var field Field
	err = json.Unmarshal([]byte(`{"id":"f","key":"f","type":"slider"}`), &field)
	require.ErrorIs(t, err, ErrInvalidEnumValue)

	var task Task
	err = json.Unmarshal([]byte(`{"status":"ARCHIVED"}`), &task)
	require.ErrorIs(t, err, ErrInvalidEnumValue)
}

func TestEnums_EmptyValuesInherit(t *testing.T) {
	t.Parallel()

	var stage Stage
	require.NoError(t, json.Unmarshal([]byte(`{"name":"A","stageKey":"a","approvalMode":""}`), &stage))
	assert.Equal(t, ApprovalModeAnyOne, stage.ApprovalMode)

	var rule FieldStageRule
	require.NoError(t, json.Unmarshal([]byte(`{"visible":"","editable":"","required":""}`), &rule))
	assert.Equal(t, DefaultRule, rule)

	assert.Equal(t, ApprovalModeAnyOne, (&Stage{}).Mode())
	assert.True(t, TaskStatusCompleted.IsTerminal())
	assert.True(t, TaskStatusRejected.IsTerminal())
	assert.False(t, TaskStatusDraft.IsTerminal())
	assert.True(t, FieldTextarea.IsTextLike())
	assert.False(t, FieldNumber.IsTextLike())
}

func TestProcess_StageOrdering(t *testing.T) {
	t.Parallel()

	p := &Process{Stages: []*Stage{
		{StageKey: "c", Order: 2},
		nil,
		{StageKey: "a", Order: 0},
		{StageKey: "b1", Order: 1},
		{StageKey: "b2", Order: 1},
	}}

	keys := make([]string, 0, 4)
	for _, s := range p.OrderedStages() {
		keys = append(keys, s.StageKey)
	}

	assert.Equal(t, []string{"a", "b1", "b2", "c"}, keys)
	assert.Equal(t, "a", p.FirstStage().StageKey)
	assert.Equal(t, "c", p.Stages[0].StageKey, "input order is preserved")
	assert.Equal(t, "b2", p.StageByKey("b2").StageKey)
	assert.Nil(t, p.StageByKey("z"))

	var none *Process
	assert.Nil(t, none.FirstStage())
	assert.Nil(t, none.StageByKey("a"))
}

func TestForm_OrderedFields(t *testing.T) {
	t.Parallel()

	form := &Form{
		Sections: []*Section{
			{ID: "s1", FieldIDs: []string{"f2"}, Columns: []Column{
				{ID: "c1", FieldIDs: []string{"f1", "f2"}},
			}},
			{ID: "s2", FieldIDs: []string{"f1", "ghost"}},
		},
		FieldsByID: map[string]*Field{
			"f1": {ID: "f1", Key: "one"},
			"f2": {ID: "f2", Key: "two"},
			"f4": {ID: "f4", Key: "four"},
			"f3": {ID: "f3", Key: "three"},
		},
	}

	assert.Equal(t, []string{"f2", "f1"}, form.Sections[0].OrderedFieldIDs())

	keys := make([]string, 0, 4)
	for _, f := range form.OrderedFields() {
		keys = append(keys, f.Key)
	}

	assert.Equal(t, []string{"two", "one", "three", "four"}, keys)
	assert.Equal(t, "f3", form.FieldByKey("three").ID)
	assert.Nil(t, form.FieldByKey("five"))
}

func TestTask_CurrentVisit(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	task := &Task{
		CurrentStageKey:          "review",
		ResolvedApproversByStage: map[string][]string{"review": {"u1", "u2"}},
		Approvals: []TaskApproval{
			{StageKey: "review", Action: ActionApprove, ActedByUserID: "u1", ActedAt: at},
			{StageKey: "finance", Action: ActionApprove, ActedByUserID: "u3", ActedAt: at},
			{StageKey: "review", Action: ActionApprove, ActedByUserID: "u2", ActedAt: at},
		},
		StageEntryIndex: 2,
		Data:            map[string]any{"amount": 10.0},
	}

	assert.Len(t, task.CurrentVisitApprovals(), 1)
	assert.True(t, task.HasApprovedCurrentStage("u2"))
	assert.False(t, task.HasApprovedCurrentStage("u1"), "approval from an earlier visit")
	assert.True(t, task.IsApprover("u1"))
	assert.False(t, task.IsApprover("u3"))

	clone := task.Clone()
	clone.Data["amount"] = 20.0
	clone.ResolvedApproversByStage["review"][0] = "changed"
	clone.Approvals[0].ActedByUserID = "changed"

	assert.InDelta(t, 10.0, task.Data["amount"], 0)
	assert.Equal(t, "u1", task.ResolvedApproversByStage["review"][0])
	assert.Equal(t, "u1", task.Approvals[0].ActedByUserID)
}

func TestSchemaTypes_JSON(t *testing.T) {
	t.Parallel()

	body, err := json.Marshal(&Property{Types: SchemaTypes{"string"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"string"}`, string(body))

	body, err = json.Marshal(&Property{Types: SchemaTypes{"number", "null"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":["number","null"]}`, string(body))

	var p Property
	require.NoError(t, json.Unmarshal([]byte(`{"type":["string","null"]}`), &p))
	assert.Equal(t, SchemaTypes{"string", "null"}, p.Types)
}

func TestValidation_Tags(t *testing.T) {
	t.Parallel()

	validate := validator.New(validator.WithRequiredStructEnabled())

	require.NoError(t, validate.Struct(&User{ID: "u1", Email: "a@example.com"}))
	require.NoError(t, validate.Struct(&User{ID: "u1"}))
	require.Error(t, validate.Struct(&User{ID: "u1", Email: "nope"}))
	require.Error(t, validate.Struct(&Role{ID: "r1"}))

	err := validate.Struct(&Process{Name: "P", Stages: []*Stage{
		{Name: "A", StageKey: "a", Conditions: []StageCondition{{FieldKey: "x", NextStageKey: "b"}}},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Operator")
}
