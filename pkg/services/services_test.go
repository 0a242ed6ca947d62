package services

import (
	"log/slog"
	"testing"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/mocks"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/otelhelper"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence/file"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/workflow"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testServices struct {
	persistence *file.Persistence
	directory   *Directory
	processes   *Process
	forms       *Form
	tasks       *Task
	bus         *mocks.MockEventBus
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	p := file.NewPersistence(t.TempDir())
	validate := NewValidator()
	tracer := otelhelper.NoopTracer()

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return &testServices{
		persistence: p,
		directory:   NewDirectory(p, validate, logger),
		processes:   NewProcess(p, validate, tracer),
		forms:       NewForm(p, validate, tracer),
		tasks:       NewTask(p, workflow.New(logger), bus, tracer, logger),
		bus:         bus,
	}
}

func purchaseDirectory() *models.Directory {
	return &models.Directory{
		Users: []*models.User{
			{ID: "u-req", DisplayName: "Requester", DepartmentID: "ops", RoleIDs: []string{}},
			{ID: "u-mgr", DisplayName: "Manager", DepartmentID: "ops", RoleIDs: []string{"manager"}},
			{ID: "u-fin1", DisplayName: "Finance One", DepartmentID: "finance", RoleIDs: []string{}},
			{ID: "u-fin2", DisplayName: "Finance Two", DepartmentID: "finance", RoleIDs: []string{}},
		},
		Departments: []*models.Department{{ID: "ops", Name: "Operations"}, {ID: "finance", Name: "Finance"}},
		Roles:       []*models.Role{{ID: "manager", Name: "Manager"}},
	}
}

// purchaseProcess routes large amounts from review to an ALL-mode finance stage.
func purchaseProcess() *models.Process {
	return &models.Process{
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
				ApprovalMode:      models.ApprovalModeAll,
			},
		},
	}
}

func purchaseForm() *models.Form {
	return &models.Form{
		ID:        "purchase-form",
		Name:      "Purchase request",
		ProcessID: "purchase",
		Sections:  []*models.Section{{ID: "main", Title: "Main", FieldIDs: []string{"f-title", "f-amount"}}},
		FieldsByID: map[string]*models.Field{
			"f-title":  {ID: "f-title", Key: "title", Label: "Title", Type: models.FieldText, RequiredDefault: true},
			"f-amount": {ID: "f-amount", Key: "amount", Label: "Amount", Type: models.FieldNumber, RequiredDefault: true},
		},
	}
}

// seed stores the purchase directory, process and form.
func (s *testServices) seed(t *testing.T) {
	t.Helper()

	require.NoError(t, s.directory.Replace(t.Context(), purchaseDirectory()))

	_, err := s.processes.Create(t.Context(), purchaseProcess())
	require.NoError(t, err)

	_, err = s.forms.Create(t.Context(), purchaseForm())
	require.NoError(t, err)
}
