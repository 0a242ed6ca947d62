package routing

import (
	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
)

// IsComplete reports whether a route target terminates the workflow.
func IsComplete(stageKey string) bool {
	return stageKey == models.CompleteStageKey
}

// NextStageKey returns the route out of currentStageKey for data.
//
// Conditions are evaluated in order and the first match wins. Without a
// match the stage's default route is used when set, otherwise the stage that
// follows in Order. ok is false when the current stage is unknown or is the
// last one; a returned key may be models.CompleteStageKey, which callers must
// treat as completion.
func NextStageKey(currentStageKey string, stages []*models.Stage, data map[string]any) (next string, ok bool) {
	var current *models.Stage

	for _, s := range stages {
		if s != nil && s.StageKey == currentStageKey {
			current = s

			break
		}
	}

	if current == nil {
		return "", false
	}

	for _, condition := range current.Conditions {
		if EvaluateCondition(condition, data) {
			return condition.NextStageKey, true
		}
	}

	if current.DefaultNextStageKey != "" {
		return current.DefaultNextStageKey, true
	}

	return SequentialNext(currentStageKey, stages)
}

// SequentialNext returns the stage after currentStageKey by Order, ignoring
// conditions and default routes.
func SequentialNext(currentStageKey string, stages []*models.Stage) (string, bool) {
	sorted := models.SortStages(stages)

	for i, s := range sorted {
		if s.StageKey != currentStageKey {
			continue
		}

		if i+1 >= len(sorted) {
			return "", false
		}

		return sorted[i+1].StageKey, true
	}

	return "", false
}
