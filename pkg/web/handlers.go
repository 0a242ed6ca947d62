// Package web provides HTTP handlers and REST API endpoints for directory,
// definition and task management.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/services"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	directory *services.Directory
	processes *services.Process
	forms     *services.Form
	tasks     *services.Task
	validator *validator.Validate
}

func NewAPIHandlers(
	directory *services.Directory,
	processes *services.Process,
	forms *services.Form,
	tasks *services.Task,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		directory: directory,
		processes: processes,
		forms:     forms,
		tasks:     tasks,
		validator: validator,
	}
}

// Routes registers every endpoint on router.
func (h *APIHandlers) Routes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	d := router.Group("/directory")
	d.Get("/", h.GetDirectory)
	d.Put("/", h.ReplaceDirectory)
	d.Put("/users/:id", h.SaveUser)
	d.Put("/departments/:id", h.SaveDepartment)
	d.Put("/roles/:id", h.SaveRole)

	p := router.Group("/processes")
	p.Get("/", h.GetProcesses)
	p.Post("/", h.CreateProcess)
	p.Get("/:id", h.GetProcess)
	p.Put("/:id", h.UpdateProcess)
	p.Delete("/:id", h.DeleteProcess)
	p.Get("/:id/approvers", h.PreviewApprovers)
	p.Post("/:id/stages/:stageKey/route", h.PreviewRoute)

	f := router.Group("/forms")
	f.Get("/", h.GetForms)
	f.Post("/", h.CreateForm)
	f.Get("/:id", h.GetForm)
	f.Put("/:id", h.UpdateForm)
	f.Delete("/:id", h.DeleteForm)

	t := router.Group("/tasks")
	t.Get("/", h.GetTasks)
	t.Post("/", h.CreateTask)
	t.Get("/:id", h.GetTask)
	t.Get("/:id/fields", h.GetTaskFields)
	t.Get("/:id/schema", h.GetTaskSchema)
	t.Post("/:id/submit", h.SubmitTask)
	t.Post("/:id/approve", h.ApproveTask)
	t.Post("/:id/reject", h.RejectTask)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.processes.HealthCheck(c.Context())

	status := "unhealthy"
	message := "WorkflowHub API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "WorkflowHub API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetDirectory(c fiber.Ctx) error {
	dir, err := h.directory.Snapshot(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(dir)
}

func (h *APIHandlers) ReplaceDirectory(c fiber.Ctx) error {
	var dir models.Directory
	if err := c.Bind().JSON(&dir); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.directory.Replace(c.Context(), &dir); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(&dir)
}

func (h *APIHandlers) SaveUser(c fiber.Ctx) error {
	var user models.User
	if err := c.Bind().JSON(&user); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	user.ID = c.Params("id")

	if err := h.directory.SaveUser(c.Context(), &user); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(&user)
}

func (h *APIHandlers) SaveDepartment(c fiber.Ctx) error {
	var department models.Department
	if err := c.Bind().JSON(&department); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	department.ID = c.Params("id")

	if err := h.directory.SaveDepartment(c.Context(), &department); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(&department)
}

func (h *APIHandlers) SaveRole(c fiber.Ctx) error {
	var role models.Role
	if err := c.Bind().JSON(&role); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	role.ID = c.Params("id")

	if err := h.directory.SaveRole(c.Context(), &role); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(&role)
}

func (h *APIHandlers) GetProcesses(c fiber.Ctx) error {
	processes, err := h.processes.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(processes)
}

func (h *APIHandlers) GetProcess(c fiber.Ctx) error {
	process, err := h.processes.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(process)
}

func (h *APIHandlers) CreateProcess(c fiber.Ctx) error {
	var process models.Process
	if err := c.Bind().JSON(&process); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	created, err := h.processes.Create(c.Context(), &process)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateProcess(c fiber.Ctx) error {
	var process models.Process
	if err := c.Bind().JSON(&process); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	updated, err := h.processes.Update(c.Context(), c.Params("id"), &process)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteProcess(c fiber.Ctx) error {
	if err := h.processes.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PreviewApprovers(c fiber.Ctx) error {
	id := c.Params("id")
	requester := c.Query("requester")

	stages, err := h.processes.PreviewApprovers(c.Context(), id, requester)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ApproverPreviewResponse{
		ProcessID:       id,
		RequesterUserID: requester,
		Stages:          stages,
	})
}

func (h *APIHandlers) PreviewRoute(c fiber.Ctx) error {
	var req RoutePreviewRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	preview, err := h.processes.PreviewRoute(c.Context(), c.Params("id"), c.Params("stageKey"), req.Data)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(preview)
}

func (h *APIHandlers) GetForms(c fiber.Ctx) error {
	forms, err := h.forms.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(forms)
}

func (h *APIHandlers) GetForm(c fiber.Ctx) error {
	form, err := h.forms.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(form)
}

func (h *APIHandlers) CreateForm(c fiber.Ctx) error {
	var form models.Form
	if err := c.Bind().JSON(&form); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	created, err := h.forms.Create(c.Context(), &form)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateForm(c fiber.Ctx) error {
	var form models.Form
	if err := c.Bind().JSON(&form); err != nil {
		return badRequest(c, "Invalid JSON format: "+err.Error())
	}

	updated, err := h.forms.Update(c.Context(), c.Params("id"), &form)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteForm(c fiber.Ctx) error {
	if err := h.forms.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetTasks lists a requester's tasks or the tasks pending on an approver.
func (h *APIHandlers) GetTasks(c fiber.Ctx) error {
	var (
		tasks []*models.Task
		err   error
	)

	switch {
	case c.Query("requester") != "":
		tasks, err = h.tasks.ListByRequester(c.Context(), c.Query("requester"))
	case c.Query("approver") != "":
		tasks, err = h.tasks.ListPendingFor(c.Context(), c.Query("approver"))
	default:
		return badRequest(c, "requester or approver query parameter is required")
	}

	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(tasks)
}

func (h *APIHandlers) GetTask(c fiber.Ctx) error {
	task, err := h.tasks.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	response, err := h.taskResponse(c, task)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(response)
}

func (h *APIHandlers) CreateTask(c fiber.Ctx) error {
	var req services.CreateTaskRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	task, err := h.tasks.Create(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	response, err := h.taskResponse(c, task)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

func (h *APIHandlers) GetTaskFields(c fiber.Ctx) error {
	id := c.Params("id")

	actor := c.Query("actor")
	if actor == "" {
		return badRequest(c, "actor query parameter is required")
	}

	task, err := h.tasks.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	fields, err := h.tasks.FieldAccess(c.Context(), id, actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(FieldAccessResponse{
		TaskID:      id,
		StageKey:    task.CurrentStageKey,
		ActorUserID: actor,
		Fields:      fields,
	})
}

func (h *APIHandlers) GetTaskSchema(c fiber.Ctx) error {
	actor := c.Query("actor")
	if actor == "" {
		return badRequest(c, "actor query parameter is required")
	}

	schema, err := h.tasks.Schema(c.Context(), c.Params("id"), actor)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(schema)
}

func (h *APIHandlers) SubmitTask(c fiber.Ctx) error {
	return h.act(c, h.tasks.Submit)
}

func (h *APIHandlers) ApproveTask(c fiber.Ctx) error {
	return h.act(c, h.tasks.Approve)
}

func (h *APIHandlers) RejectTask(c fiber.Ctx) error {
	return h.act(c, h.tasks.Reject)
}

type taskAction func(ctx context.Context, req services.ActionRequest) (*workflow.Transition, error)

func (h *APIHandlers) act(c fiber.Ctx, action taskAction) error {
	var req services.ActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	req.TaskID = c.Params("id")

	transition, err := action(c.Context(), req)
	if err != nil {
		return handleServiceError(c, err)
	}

	task, err := h.taskResponse(c, transition.Task)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransitionResponse{
		Task:         task,
		Action:       transition.Action,
		FromStageKey: transition.FromStageKey,
		ToStageKey:   transition.ToStageKey,
		Advanced:     transition.Advanced,
		Completed:    transition.Completed,
		Rejected:     transition.Rejected,
	})
}

func (h *APIHandlers) taskResponse(c fiber.Ctx, task *models.Task) (TaskResponse, error) {
	pending, err := h.tasks.PendingApprovers(c.Context(), task)
	if err != nil && !services.IsNotFoundError(err) {
		return TaskResponse{}, err
	}

	if pending == nil {
		pending = []string{}
	}

	return TaskResponse{Task: task, PendingApprovers: pending}, nil
}
