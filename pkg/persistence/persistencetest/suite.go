// Package persistencetest holds behavior tests shared by every persistence backend.
package persistencetest

import (
	"fmt"
	"testing"
	"time"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises every repository of p. The store must start empty.
func Run(t *testing.T, p persistence.Persistence) {
	t.Helper()

	t.Run("directory", func(t *testing.T) { testDirectory(t, p.DirectoryRepository()) })
	t.Run("processes", func(t *testing.T) { testProcesses(t, p.ProcessRepository()) })
	t.Run("forms", func(t *testing.T) { testForms(t, p.FormRepository()) })
	t.Run("tasks", func(t *testing.T) { testTasks(t, p.TaskRepository()) })
	t.Run("health", func(t *testing.T) { require.NoError(t, p.HealthCheck(t.Context())) })
}

func testDirectory(t *testing.T, repo persistence.DirectoryRepository) {
	ctx := t.Context()

	empty, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Users)
	assert.Empty(t, empty.Departments)
	assert.Empty(t, empty.Roles)

	dir := &models.Directory{
		Users: []*models.User{
			{ID: "u1", DisplayName: "Ada", Email: "ada@example.com", DepartmentID: "d1", RoleIDs: []string{"r1"}},
		},
		Departments: []*models.Department{{ID: "d1", Name: "Finance"}},
		Roles:       []*models.Role{{ID: "r1", Name: "Manager"}},
	}
	require.NoError(t, repo.Replace(ctx, dir))

	require.NoError(t, repo.SaveUser(ctx, &models.User{ID: "u1", DisplayName: "Ada L.", DepartmentID: "d2", RoleIDs: []string{}}))
	require.NoError(t, repo.SaveUser(ctx, &models.User{ID: "u2", DisplayName: "Bo", RoleIDs: []string{"r1"}}))
	require.NoError(t, repo.SaveDepartment(ctx, &models.Department{ID: "d2", Name: "IT"}))
	require.NoError(t, repo.SaveRole(ctx, &models.Role{ID: "r1", Name: "Head"}))

	got, err := repo.Snapshot(ctx)
	require.NoError(t, err)

	require.Len(t, got.Users, 2)

	u1 := got.UserByID("u1")
	require.NotNil(t, u1)
	assert.Equal(t, "Ada L.", u1.DisplayName)
	assert.Equal(t, "d2", u1.DepartmentID)
	assert.Empty(t, u1.RoleIDs)

	u2 := got.UserByID("u2")
	require.NotNil(t, u2)
	assert.Equal(t, []string{"r1"}, u2.RoleIDs)

	assert.ElementsMatch(t, []string{"d1", "d2"}, []string{got.Departments[0].ID, got.Departments[1].ID})
	require.Len(t, got.Roles, 1)
	assert.Equal(t, "Head", got.Roles[0].Name)

	require.NoError(t, repo.Replace(ctx, &models.Directory{Roles: []*models.Role{{ID: "r9", Name: "Auditor"}}}))

	got, err = repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Users)
	assert.Empty(t, got.Departments)
	require.Len(t, got.Roles, 1)
	assert.Equal(t, "r9", got.Roles[0].ID)
}

// SampleProcess returns a three-stage process with branching on the first stage.
func SampleProcess(id string) *models.Process {
	return &models.Process{
		ID:        id,
		Name:      "Purchase " + id,
		Version:   1,
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Stages: []*models.Stage{
			{
				ID: "s1", Name: "Request", StageKey: "request", Order: 0,
				ApproverSelectors: []models.ApproverSelector{models.ByUsers("u1")},
				ApprovalMode:      models.ApprovalModeAnyOne,
				Conditions: []models.StageCondition{
					{ID: "c1", FieldKey: "amount", Operator: models.OperatorLessThan, Value: 100.0, NextStageKey: models.CompleteStageKey},
				},
				DefaultNextStageKey: "review",
			},
			{
				ID: "s2", Name: "Review", StageKey: "review", Order: 1,
				ApproverSelectors: []models.ApproverSelector{
					models.ByDeptRoles(models.DeptRolePair{DepartmentID: "d1", RoleID: "r1"}),
				},
				ApprovalMode: models.ApprovalModeAll,
			},
		},
	}
}

func testProcesses(t *testing.T, repo persistence.ProcessRepository) {
	ctx := t.Context()

	_, err := repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrProcessNotFound)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, repo.Save(ctx, SampleProcess("p2")))
	require.NoError(t, repo.Save(ctx, SampleProcess("p1")))

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, SampleProcess("p1"), got)

	updated := SampleProcess("p1")
	updated.Name = "Renamed"
	updated.Version = 2
	require.NoError(t, repo.Save(ctx, updated))

	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "p1", all[0].ID)
	assert.Equal(t, "Renamed", all[0].Name)
	assert.Equal(t, "p2", all[1].ID)

	require.NoError(t, repo.Delete(ctx, "p2"))
	require.ErrorIs(t, repo.Delete(ctx, "p2"), persistence.ErrProcessNotFound)
}

// SampleForm returns a form bound to processID.
func SampleForm(id, processID string) *models.Form {
	return &models.Form{
		ID:        id,
		Name:      "Form " + id,
		Version:   1,
		ProcessID: processID,
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Sections: []*models.Section{
			{ID: "main", Title: "Main", FieldIDs: []string{"f-title", "f-amount"}},
		},
		FieldsByID: map[string]*models.Field{
			"f-title": {
				ID: "f-title", Key: "title", Label: "Title", Type: models.FieldText, RequiredDefault: true,
				RulesByStage: map[string]models.FieldStageRule{},
			},
			"f-amount": {
				ID: "f-amount", Key: "amount", Label: "Amount", Type: models.FieldNumber,
				DefaultValue: 0.0,
				RulesByStage: map[string]models.FieldStageRule{
					"review": {
						Visible:  models.VisibilityShow,
						Editable: models.EditabilityReadOnly,
						Required: models.RequirementRequired,
					},
				},
			},
		},
	}
}

func testForms(t *testing.T, repo persistence.FormRepository) {
	ctx := t.Context()

	_, err := repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrFormNotFound)

	require.NoError(t, repo.Save(ctx, SampleForm("f1", "p1")))

	got, err := repo.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, SampleForm("f1", "p1"), got)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, "f1"))
	require.ErrorIs(t, repo.Delete(ctx, "f1"), persistence.ErrFormNotFound)
}

// SampleTask returns an IN_PROGRESS task created at the given offset from a fixed instant.
func SampleTask(id, requester string, offset time.Duration) *models.Task {
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC).Add(offset)

	return &models.Task{
		ID:              id,
		FormID:          "f1",
		ProcessID:       "p1",
		RequesterUserID: requester,
		CurrentStageKey: "request",
		Status:          models.TaskStatusInProgress,
		ResolvedApproversByStage: map[string][]string{
			"request": {"u1"},
			"review":  {},
		},
		Approvals: []models.TaskApproval{},
		Data:      map[string]any{"title": "Chairs", "amount": 250.0},
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func testTasks(t *testing.T, repo persistence.TaskRepository) {
	ctx := t.Context()

	_, err := repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrTaskNotFound)

	for i, requester := range []string{"alice", "bob", "alice"} {
		task := SampleTask(fmt.Sprintf("t%d", i+1), requester, time.Duration(i)*time.Minute)
		require.NoError(t, repo.Create(ctx, task))
	}

	err = repo.Create(ctx, SampleTask("t1", "alice", 0))
	require.ErrorIs(t, err, persistence.ErrAlreadyExists)

	got, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, SampleTask("t1", "alice", 0), got)

	next := got.Clone()
	next.CurrentStageKey = "review"
	next.StageEntryIndex = 1
	next.Version = 2
	next.Approvals = append(next.Approvals, models.TaskApproval{
		StageKey: "request", Action: models.ActionApprove, ActedByUserID: "u1",
		ActedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, repo.Update(ctx, next, 1))

	stale := got.Clone()
	stale.Status = models.TaskStatusRejected
	stale.Version = 2
	err = repo.Update(ctx, stale, 1)
	require.ErrorIs(t, err, persistence.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, next, stored)

	err = repo.Update(ctx, SampleTask("ghost", "alice", 0), 1)
	require.ErrorIs(t, err, persistence.ErrTaskNotFound)

	mine, err := repo.ListByRequester(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "t1", mine[0].ID)
	assert.Equal(t, "t3", mine[1].ID)

	completed := SampleTask("t2", "bob", time.Minute)
	completed.Status = models.TaskStatusCompleted
	completed.Version = 2
	require.NoError(t, repo.Update(ctx, completed, 1))

	open, err := repo.ListByStatus(ctx, models.TaskStatusInProgress)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "t1", open[0].ID)
	assert.Equal(t, "t3", open[1].ID)

	require.NoError(t, repo.Delete(ctx, "t3"))
	require.ErrorIs(t, repo.Delete(ctx, "t3"), persistence.ErrTaskNotFound)
}
