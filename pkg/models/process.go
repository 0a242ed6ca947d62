package models

import (
	"slices"
	"time"
)

// CompleteStageKey is the route target that terminates a workflow.
const CompleteStageKey = "$COMPLETE"

// StageCondition routes to NextStageKey when the value stored under FieldKey
// satisfies Operator against Value.
type StageCondition struct {
	ID           string            `json:"id"`
	FieldKey     string            `json:"fieldKey"     validate:"required"`
	Operator     ConditionOperator `json:"operator"     validate:"required"`
	Value        any               `json:"value,omitempty"`
	NextStageKey string            `json:"nextStageKey" validate:"required"`
}

// Stage is one step of a Process. StageKey is the stable routing identifier;
// field rules, task state and conditions all refer to stages by key.
type Stage struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"                          validate:"required"`
	StageKey            string             `json:"stageKey"                      validate:"required"`
	ApproverSelectors   []ApproverSelector `json:"approverSelectors"`
	ApprovalMode        ApprovalMode       `json:"approvalMode"`
	Order               int                `json:"order"`
	Conditions          []StageCondition   `json:"conditions,omitempty"          validate:"dive"`
	DefaultNextStageKey string             `json:"defaultNextStageKey,omitempty"`
}

// Mode returns the approval mode, treating an unset mode as ANY_ONE.
func (s *Stage) Mode() ApprovalMode {
	if s.ApprovalMode == "" {
		return ApprovalModeAnyOne
	}

	return s.ApprovalMode
}

// Process is a reusable workflow template made of ordered stages.
type Process struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"      validate:"required"`
	Version   int       `json:"version"`
	Stages    []*Stage  `json:"stages"    validate:"dive"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StageByKey returns the stage with the given key, or nil.
func (p *Process) StageByKey(key string) *Stage {
	if p == nil {
		return nil
	}

	for _, s := range p.Stages {
		if s != nil && s.StageKey == key {
			return s
		}
	}

	return nil
}

// OrderedStages returns the stages sorted by Order. Stages sharing an order
// keep their declared position.
func (p *Process) OrderedStages() []*Stage {
	if p == nil {
		return nil
	}

	return SortStages(p.Stages)
}

// FirstStage returns the stage with the lowest order, or nil for a process
// without stages.
func (p *Process) FirstStage() *Stage {
	ordered := p.OrderedStages()
	if len(ordered) == 0 {
		return nil
	}

	return ordered[0]
}

// SortStages returns a stably sorted copy of stages by Order; nil entries are dropped.
func SortStages(stages []*Stage) []*Stage {
	sorted := make([]*Stage, 0, len(stages))
	for _, s := range stages {
		if s != nil {
			sorted = append(sorted, s)
		}
	}

	slices.SortStableFunc(sorted, func(a, b *Stage) int {
		return a.Order - b.Order
	})

	return sorted
}
