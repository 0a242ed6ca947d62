package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/HuuLongNguyen/WorkflowHub/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("not found helpers match every entity kind", func(t *testing.T) {
		assert.True(t, persistence.IsNotFound(persistence.TaskNotFound("GetByID", "t1")))
		assert.True(t, persistence.IsNotFound(persistence.ProcessNotFound("GetByID", "p1")))
		assert.True(t, persistence.IsNotFound(persistence.FormNotFound("Delete", "f1")))
		assert.False(t, persistence.IsNotFound(persistence.VersionConflict("t1", 1, 2)))

		wrapped := fmt.Errorf("load: %w", persistence.TaskNotFound("GetByID", "t1"))
		assert.True(t, errors.Is(wrapped, persistence.ErrTaskNotFound))
		assert.False(t, errors.Is(wrapped, persistence.ErrFormNotFound))
	})

	t.Run("version conflict carries both versions", func(t *testing.T) {
		err := persistence.VersionConflict("task-9", 3, 5)

		assert.True(t, persistence.IsVersionConflict(err))
		assert.Contains(t, err.Error(), "task-9")
		assert.Contains(t, err.Error(), "expected version 3")
		assert.Contains(t, err.Error(), "stored version 5")
	})

	t.Run("entity error contains context", func(t *testing.T) {
		err := persistence.NewEntityError("Save", "form", "form-1", persistence.ErrAlreadyExists)

		assert.Contains(t, err.Error(), "Save")
		assert.Contains(t, err.Error(), "form form-1")
		assert.True(t, persistence.IsAlreadyExists(err))
		assert.Equal(t, persistence.ErrAlreadyExists, errors.Unwrap(err))
	})
}
