package models

import (
	"maps"
	"slices"
	"time"
)

// TaskApproval is an append-only audit entry for an action on a task.
type TaskApproval struct {
	StageKey      string         `json:"stageKey"`
	Action        ApprovalAction `json:"action"`
	ActedByUserID string         `json:"actedByUserId"`
	ActedAt       time.Time      `json:"actedAt"`
}

// Task is a running instance of a Process and Form pairing.
//
// ResolvedApproversByStage is computed once at creation and never refreshed.
// Version increases by one on every state change and guards stored updates.
// StageEntryIndex is the length of Approvals when the current stage was
// entered; entries from that index on belong to the current visit.
type Task struct {
	ID                       string              `json:"id"`
	FormID                   string              `json:"formId"`
	ProcessID                string              `json:"processId"`
	RequesterUserID          string              `json:"requesterUserId"`
	CurrentStageKey          string              `json:"currentStageKey"`
	Status                   TaskStatus          `json:"status"`
	ResolvedApproversByStage map[string][]string `json:"resolvedApproversByStage"`
	Approvals                []TaskApproval      `json:"approvals"`
	Data                     map[string]any      `json:"data"`
	StageEntryIndex          int                 `json:"stageEntryIndex"`
	Version                  int64               `json:"version"`
	CreatedAt                time.Time           `json:"createdAt"`
	UpdatedAt                time.Time           `json:"updatedAt"`
}

// ApproversFor returns the frozen approver list for stageKey.
func (t *Task) ApproversFor(stageKey string) []string {
	if t == nil {
		return nil
	}

	return t.ResolvedApproversByStage[stageKey]
}

// IsApprover reports whether userID may act on the current stage.
func (t *Task) IsApprover(userID string) bool {
	return slices.Contains(t.ApproversFor(t.CurrentStageKey), userID)
}

// CurrentVisitApprovals returns the approvals recorded since the task entered
// its current stage.
func (t *Task) CurrentVisitApprovals() []TaskApproval {
	if t == nil || t.StageEntryIndex >= len(t.Approvals) {
		return nil
	}

	from := max(t.StageEntryIndex, 0)

	return t.Approvals[from:]
}

// HasApprovedCurrentStage reports whether userID approved during the current visit.
func (t *Task) HasApprovedCurrentStage(userID string) bool {
	for _, a := range t.CurrentVisitApprovals() {
		if a.Action == ActionApprove && a.StageKey == t.CurrentStageKey && a.ActedByUserID == userID {
			return true
		}
	}

	return false
}

// Clone returns a copy that shares no slices or maps with t. Data values are
// copied shallowly.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	c := *t
	c.Approvals = slices.Clone(t.Approvals)
	c.Data = maps.Clone(t.Data)

	if t.ResolvedApproversByStage != nil {
		c.ResolvedApproversByStage = make(map[string][]string, len(t.ResolvedApproversByStage))
		for k, v := range t.ResolvedApproversByStage {
			c.ResolvedApproversByStage[k] = slices.Clone(v)
		}
	}

	return &c
}
