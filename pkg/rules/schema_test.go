package rules

import (
	"encoding/json"
	"testing"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expenseForm() *models.Form {
	return &models.Form{
		ID:        "expense",
		Name:      "Expense",
		ProcessID: "p1",
		Sections:  []*models.Section{{ID: "main", FieldIDs: []string{"title", "amount", "urgent", "note", "audit"}}},
		FieldsByID: map[string]*models.Field{
			"title":  {ID: "title", Key: "title", Label: "Title", Type: models.FieldText, RequiredDefault: true},
			"amount": {ID: "amount", Key: "amount", Label: "Amount", Type: models.FieldNumber, RequiredDefault: true},
			"urgent": {ID: "urgent", Key: "urgent", Label: "Urgent", Type: models.FieldCheckbox},
			"note": {
				ID: "note", Key: "note", Label: "Note", Type: models.FieldTextarea, RequiredDefault: true,
				RulesByStage: map[string]models.FieldStageRule{"review": {Editable: models.EditabilityReadOnly}},
			},
			"audit": {
				ID: "audit", Key: "audit", Label: "Audit", Type: models.FieldText, RequiredDefault: true,
				RulesByStage: map[string]models.FieldStageRule{"draft": {Visible: models.VisibilityHide}},
			},
		},
	}
}

func TestBuildSchema(t *testing.T) {
	t.Parallel()

	schema := BuildSchema(expenseForm(), "review", "alice", nil)

	assert.Equal(t, "object", schema.Type)
	assert.ElementsMatch(t, []string{"title", "amount", "audit"}, schema.Required)

	require.Contains(t, schema.Properties, "title")
	assert.Equal(t, models.SchemaTypes{"string"}, schema.Properties["title"].Types)
	require.NotNil(t, schema.Properties["title"].MinLength)
	assert.Equal(t, 1, *schema.Properties["title"].MinLength)

	assert.Equal(t, models.SchemaTypes{"number"}, schema.Properties["amount"].Types)
	assert.Nil(t, schema.Properties["amount"].MinLength)

	assert.Equal(t, models.SchemaTypes{"boolean", "null"}, schema.Properties["urgent"].Types)

	require.Contains(t, schema.Properties, "note")
	assert.Empty(t, schema.Properties["note"].Types)

	draft := BuildSchema(expenseForm(), "draft", "alice", nil)
	assert.NotContains(t, draft.Properties, "audit")
	assert.NotContains(t, draft.Required, "audit")
}

func TestBuildSchema_WireShape(t *testing.T) {
	t.Parallel()

	body, err := json.Marshal(BuildSchema(expenseForm(), "review", "alice", nil))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type": "object",
		"title": "Expense",
		"required": ["title", "amount", "audit"],
		"properties": {
			"title": {"type": "string", "description": "Title", "minLength": 1},
			"amount": {"type": "number", "description": "Amount"},
			"urgent": {"type": ["boolean", "null"], "description": "Urgent"},
			"note": {"description": "Note"},
			"audit": {"type": "string", "description": "Audit", "minLength": 1}
		}
	}`, string(body))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		stage       string
		data        map[string]any
		invalidKeys []string
	}{
		{
			name:  "complete submission",
			stage: "review",
			data:  map[string]any{"title": "Laptop", "amount": 1200.0, "audit": "ok"},
		},
		{
			name:        "missing required fields",
			stage:       "review",
			data:        map[string]any{"title": "Laptop"},
			invalidKeys: []string{"amount", "audit"},
		},
		{
			name:        "empty text fails minimum length",
			stage:       "review",
			data:        map[string]any{"title": "", "amount": 5.0, "audit": "ok"},
			invalidKeys: []string{"title"},
		},
		{
			name:        "wrong type",
			stage:       "review",
			data:        map[string]any{"title": "x", "amount": "a lot", "audit": "ok"},
			invalidKeys: []string{"amount"},
		},
		{
			name:  "optional accepts null",
			stage: "review",
			data:  map[string]any{"title": "x", "amount": 1.0, "audit": "ok", "urgent": nil},
		},
		{
			name:  "read only field is not validated",
			stage: "review",
			data:  map[string]any{"title": "x", "amount": 1.0, "audit": "ok", "note": 42.0},
		},
		{
			name:  "hidden required field is ignored",
			stage: "draft",
			data:  map[string]any{"title": "x", "amount": 1.0, "note": "n"},
		},
		{
			name:  "unknown keys pass through",
			stage: "draft",
			data:  map[string]any{"title": "x", "amount": 1.0, "note": "n", "extra": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(expenseForm(), tt.stage, "alice", nil, tt.data)
			if len(tt.invalidKeys) == 0 {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, ErrInvalidSubmission)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)

			keys := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				keys = append(keys, f.Key)
			}

			assert.ElementsMatch(t, tt.invalidKeys, keys)
		})
	}
}

func TestValidate_ApproverGatedFieldIsUnvalidatedForOthers(t *testing.T) {
	t.Parallel()

	form := &models.Form{
		ID: "f",
		FieldsByID: map[string]*models.Field{
			"decision": {
				ID: "decision", Key: "decision", Type: models.FieldSelect, RequiredDefault: true,
				RulesByStage: map[string]models.FieldStageRule{"review": {OnlyApproversCanEdit: true}},
			},
		},
	}

	require.NoError(t, Validate(form, "review", "bob", []string{"alice"}, nil))
	require.Error(t, Validate(form, "review", "alice", []string{"alice"}, nil))
}
