// Package web provides HTTP request and response types for the WorkflowHub API.
package web

import (
	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
	"github.com/HuuLongNguyen/WorkflowHub/pkg/rules"
)

// TaskResponse is a task plus the approvers still expected on its current stage.
type TaskResponse struct {
	*models.Task

	PendingApprovers []string `json:"pendingApprovers"`
}

// TransitionResponse reports the outcome of submit, approve and reject.
type TransitionResponse struct {
	Task         TaskResponse `json:"task"`
	Action       string       `json:"action"`
	FromStageKey string       `json:"fromStageKey"`
	ToStageKey   string       `json:"toStageKey,omitempty"`
	Advanced     bool         `json:"advanced"`
	Completed    bool         `json:"completed"`
	Rejected     bool         `json:"rejected"`
}

// FieldAccessResponse lists the per-field access of an actor on a task.
type FieldAccessResponse struct {
	TaskID      string         `json:"taskId"`
	StageKey    string         `json:"stageKey"`
	ActorUserID string         `json:"actorUserId"`
	Fields      []rules.Access `json:"fields"`
}

// RoutePreviewRequest carries the form data a route preview is evaluated against.
type RoutePreviewRequest struct {
	Data map[string]any `json:"data"`
}

// ApproverPreviewResponse maps stage keys to the approvers a new task would freeze.
type ApproverPreviewResponse struct {
	ProcessID       string              `json:"processId"`
	RequesterUserID string              `json:"requesterUserId,omitempty"`
	Stages          map[string][]string `json:"stages"`
}
