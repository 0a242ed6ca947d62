package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/otelhelper"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence/file"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/services"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/web"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	persistence := file.NewPersistence(t.TempDir())
	validate := services.NewValidator()
	tracer := otelhelper.NoopTracer()

	handlers := web.NewAPIHandlers(
		services.NewDirectory(persistence, validate, logger),
		services.NewProcess(persistence, validate, tracer),
		services.NewForm(persistence, validate, tracer),
		services.NewTask(persistence, workflow.New(logger), nil, tracer, logger),
		validate,
	)

	app := fiber.New()
	handlers.Routes(app)

	return app
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))

	return v
}

type problem struct {
	Type   string `json:"type"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func seed(t *testing.T, app *fiber.App) {
	t.Helper()

	status, body := call(t, app, http.MethodPut, "/directory", &models.Directory{
		Users: []*models.User{
			{ID: "u-req", DepartmentID: "ops", RoleIDs: []string{}},
			{ID: "u-mgr", DepartmentID: "ops", RoleIDs: []string{"manager"}},
			{ID: "u-fin", DepartmentID: "finance", RoleIDs: []string{}},
		},
		Departments: []*models.Department{{ID: "ops", Name: "Operations"}, {ID: "finance", Name: "Finance"}},
		Roles:       []*models.Role{{ID: "manager", Name: "Manager"}},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = call(t, app, http.MethodPost, "/processes", &models.Process{
		ID:   "purchase",
		Name: "Purchase",
		Stages: []*models.Stage{
			{ID: "s1", Name: "Request", StageKey: "request", Order: 0},
			{
				ID: "s2", Name: "Review", StageKey: "review", Order: 1,
				ApproverSelectors: []models.ApproverSelector{models.ByRoles("manager")},
				Conditions: []models.StageCondition{
					{ID: "c1", FieldKey: "amount", Operator: models.OperatorGreaterThan, Value: 1000.0, NextStageKey: "finance"},
				},
				DefaultNextStageKey: models.CompleteStageKey,
			},
			{
				ID: "s3", Name: "Finance", StageKey: "finance", Order: 2,
				ApproverSelectors: []models.ApproverSelector{models.ByDepartments("finance")},
			},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = call(t, app, http.MethodPost, "/forms", &models.Form{
		ID:        "purchase-form",
		Name:      "Purchase request",
		ProcessID: "purchase",
		Sections:  []*models.Section{{ID: "main", Title: "Main", FieldIDs: []string{"f-title", "f-amount"}}},
		FieldsByID: map[string]*models.Field{
			"f-title": {ID: "f-title", Key: "title", Label: "Title", Type: models.FieldText, RequiredDefault: true},
			"f-amount": {
				ID: "f-amount", Key: "amount", Label: "Amount", Type: models.FieldNumber, RequiredDefault: true,
				RulesByStage: map[string]models.FieldStageRule{
					"finance": {Visible: models.VisibilityHide},
				},
			},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
}

func TestAPI_HealthCheck(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	status, body := call(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, status)

	health := decode[map[string]any](t, body)
	assert.Equal(t, "healthy", health["status"])
}

func TestAPI_TaskLifecycle(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	seed(t, app)

	status, body := call(t, app, http.MethodPost, "/tasks", services.CreateTaskRequest{
		FormID:          "purchase-form",
		RequesterUserID: "u-req",
		Data:            map[string]any{"title": "Laptops"},
		Draft:           true,
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	created := decode[web.TaskResponse](t, body)
	assert.Equal(t, models.TaskStatusDraft, created.Status)
	assert.Equal(t, "request", created.CurrentStageKey)
	assert.Equal(t, []string{"u-mgr"}, created.ResolvedApproversByStage["review"])

	taskPath := "/tasks/" + created.ID

	status, body = call(t, app, http.MethodPost, taskPath+"/submit", services.ActionRequest{ActorUserID: "u-mgr"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not_requester", decode[problem](t, body).Type)

	status, body = call(t, app, http.MethodPost, taskPath+"/submit", services.ActionRequest{
		ActorUserID: "u-req",
		Data:        map[string]any{"amount": 5000.0},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	submitted := decode[web.TransitionResponse](t, body)
	assert.Equal(t, "Submit", submitted.Action)
	assert.True(t, submitted.Advanced)
	assert.Equal(t, "review", submitted.ToStageKey)
	assert.Equal(t, []string{"u-mgr"}, submitted.Task.PendingApprovers)

	status, body = call(t, app, http.MethodGet, "/tasks?approver=u-mgr", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Task](t, body), 1)

	status, body = call(t, app, http.MethodGet, "/tasks?requester=u-req", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Task](t, body), 1)

	status, body = call(t, app, http.MethodPost, taskPath+"/approve", services.ActionRequest{ActorUserID: "u-fin"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not_approver", decode[problem](t, body).Type)

	stale := int64(1)
	status, _ = call(t, app, http.MethodPost, taskPath+"/approve", services.ActionRequest{
		ActorUserID: "u-mgr",
		Version:     &stale,
	})
	assert.Equal(t, http.StatusConflict, status)

	status, body = call(t, app, http.MethodPost, taskPath+"/approve", services.ActionRequest{ActorUserID: "u-mgr"})
	require.Equal(t, http.StatusOK, status, string(body))

	approved := decode[web.TransitionResponse](t, body)
	assert.Equal(t, "finance", approved.ToStageKey)
	assert.Equal(t, []string{"u-fin"}, approved.Task.PendingApprovers)

	status, body = call(t, app, http.MethodGet, taskPath+"/fields?actor=u-fin", nil)
	require.Equal(t, http.StatusOK, status)

	fields := decode[web.FieldAccessResponse](t, body)
	assert.Equal(t, "finance", fields.StageKey)
	require.Len(t, fields.Fields, 2)
	assert.Equal(t, "title", fields.Fields[0].Key)
	assert.True(t, fields.Fields[0].Editable)
	assert.False(t, fields.Fields[1].Visible)

	status, body = call(t, app, http.MethodGet, taskPath+"/schema?actor=u-fin", nil)
	require.Equal(t, http.StatusOK, status)

	schema := decode[models.JSONSchema](t, body)
	assert.Contains(t, schema.Properties, "title")
	assert.NotContains(t, schema.Properties, "amount")

	status, body = call(t, app, http.MethodPost, taskPath+"/reject", services.ActionRequest{ActorUserID: "u-fin"})
	require.Equal(t, http.StatusOK, status, string(body))

	rejected := decode[web.TransitionResponse](t, body)
	assert.True(t, rejected.Rejected)
	assert.Equal(t, models.TaskStatusRejected, rejected.Task.Status)
	assert.Empty(t, rejected.Task.PendingApprovers)

	status, _ = call(t, app, http.MethodPost, taskPath+"/approve", services.ActionRequest{ActorUserID: "u-fin"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = call(t, app, http.MethodGet, taskPath, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(4), decode[web.TaskResponse](t, body).Version)
}

func TestAPI_Previews(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	seed(t, app)

	status, body := call(t, app, http.MethodGet, "/processes/purchase/approvers?requester=u-req", nil)
	require.Equal(t, http.StatusOK, status)

	approvers := decode[web.ApproverPreviewResponse](t, body)
	assert.Equal(t, []string{"u-mgr"}, approvers.Stages["review"])
	assert.Equal(t, []string{"u-fin"}, approvers.Stages["finance"])

	tests := []struct {
		amount   float64
		next     string
		complete bool
	}{
		{amount: 5000, next: "finance"},
		{amount: 10, complete: true},
	}

	for _, tt := range tests {
		t.Run(strconv.FormatFloat(tt.amount, 'f', -1, 64), func(t *testing.T) {
			status, body := call(t, app, http.MethodPost, "/processes/purchase/stages/review/route",
				web.RoutePreviewRequest{Data: map[string]any{"amount": tt.amount}})
			require.Equal(t, http.StatusOK, status, string(body))

			preview := decode[services.RoutePreview](t, body)
			assert.Equal(t, tt.next, preview.NextStageKey)
			assert.Equal(t, tt.complete, preview.Completes)
		})
	}

	status, _ = call(t, app, http.MethodPost, "/processes/purchase/stages/legal/route", web.RoutePreviewRequest{})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_Errors(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	seed(t, app)

	tests := []struct {
		name        string
		method      string
		path        string
		body        any
		status      int
		problemType string
	}{
		{
			name:   "task without form",
			method: http.MethodPost, path: "/tasks",
			body:   services.CreateTaskRequest{RequesterUserID: "u-req"},
			status: http.StatusBadRequest, problemType: "validation_error",
		},
		{
			name:   "task list without filter",
			method: http.MethodGet, path: "/tasks",
			status: http.StatusBadRequest, problemType: "validation_error",
		},
		{
			name:   "unknown task",
			method: http.MethodGet, path: "/tasks/missing",
			status: http.StatusNotFound, problemType: "not_found",
		},
		{
			name:   "missing required field on create",
			method: http.MethodPost, path: "/tasks",
			body:   services.CreateTaskRequest{FormID: "purchase-form", RequesterUserID: "u-req"},
			status: http.StatusBadRequest, problemType: "validation_error",
		},
		{
			name:   "unknown selector type",
			method: http.MethodPost, path: "/processes",
			body: map[string]any{
				"name": "Broken",
				"stages": []map[string]any{{
					"name": "Only", "stageKey": "only",
					"approverSelectors": []map[string]any{{"type": "TEAM"}},
				}},
			},
			status: http.StatusBadRequest, problemType: "validation_error",
		},
		{
			name:   "duplicate stage keys",
			method: http.MethodPost, path: "/processes",
			body: &models.Process{Name: "Dup", Stages: []*models.Stage{
				{Name: "A", StageKey: "a"}, {Name: "B", StageKey: "a", Order: 1},
			}},
			status: http.StatusBadRequest, problemType: "DUPLICATE_STAGE_KEY",
		},
		{
			name:   "duplicate process",
			method: http.MethodPost, path: "/processes",
			body: &models.Process{ID: "purchase", Name: "Again", Stages: []*models.Stage{
				{Name: "A", StageKey: "a"},
			}},
			status: http.StatusConflict, problemType: "conflict",
		},
		{
			name:   "form for unknown process",
			method: http.MethodPost, path: "/forms",
			body:   &models.Form{Name: "Orphan", ProcessID: "ghost", FieldsByID: map[string]*models.Field{}},
			status: http.StatusBadRequest, problemType: "UNKNOWN_PROCESS",
		},
		{
			name:   "fields without actor",
			method: http.MethodGet, path: "/tasks/any/fields",
			status: http.StatusBadRequest, problemType: "validation_error",
		},
		{
			name:   "invalid user email",
			method: http.MethodPut, path: "/directory/users/u-x",
			body:   &models.User{Email: "nope"},
			status: http.StatusBadRequest, problemType: "INVALID_DIRECTORY_ENTRY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, status, string(body))

			got := decode[problem](t, body)
			assert.Equal(t, tt.problemType, got.Type)
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestAPI_DefinitionCRUD(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)
	seed(t, app)

	status, body := call(t, app, http.MethodGet, "/processes", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Process](t, body), 1)

	status, body = call(t, app, http.MethodGet, "/forms/purchase-form", nil)
	require.Equal(t, http.StatusOK, status)

	form := decode[models.Form](t, body)
	form.Name = "Purchase request v2"

	status, body = call(t, app, http.MethodPut, "/forms/purchase-form", &form)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, 2, decode[models.Form](t, body).Version)

	status, _ = call(t, app, http.MethodDelete, "/forms/purchase-form", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = call(t, app, http.MethodGet, "/forms", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, http.MethodDelete, "/processes/purchase", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = call(t, app, http.MethodDelete, "/processes/purchase", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = call(t, app, http.MethodPut, "/directory/roles/auditor", &models.Role{Name: "Auditor"})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, "auditor", decode[models.Role](t, body).ID)

	status, body = call(t, app, http.MethodGet, "/directory", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[models.Directory](t, body).Roles, 2)
}
