// Package approvers resolves the approver user IDs of every stage of a process
// against a directory snapshot.
package approvers

import (
	"github.com/HuuLongNguyen/WorkflowHub/pkg/models"
)

// RequesterContext describes who launched the task. It is accepted for
// future filtering; requesters are currently not excluded from approver lists.
type RequesterContext struct {
	RequesterUserID       string
	RequesterDepartmentID string
}

// Resolve maps every stage key of process to the deduplicated union of its
// selectors' expansions. Stages without matching users map to an empty list.
// IDs appear in order of first encounter.
func Resolve(process *models.Process, directory *models.Directory, _ RequesterContext) map[string][]string {
	resolved := make(map[string][]string)
	if process == nil {
		return resolved
	}

	for _, stage := range process.Stages {
		if stage == nil {
			continue
		}

		resolved[stage.StageKey] = ResolveStage(stage, directory)
	}

	return resolved
}

// ResolveStage returns the approvers of a single stage.
func ResolveStage(stage *models.Stage, directory *models.Directory) []string {
	acc := newOrderedSet()

	for _, selector := range stage.ApproverSelectors {
		acc.addAll(Expand(selector, directory))
	}

	return acc.items
}

// Expand returns the user IDs a single selector matches. USER selectors are
// returned verbatim without checking the directory; unknown department and
// role IDs contribute nothing.
func Expand(selector models.ApproverSelector, directory *models.Directory) []string {
	acc := newOrderedSet()

	var users []*models.User
	if directory != nil {
		users = directory.Users
	}

	switch target := selector.Target.(type) {
	case models.UserTarget:
		acc.addAll(target.UserIDs)
	case models.DepartmentTarget:
		for _, deptID := range target.DepartmentIDs {
			acc.addAll(matching(users, func(u *models.User) bool {
				return u.DepartmentID == deptID
			}))
		}
	case models.RoleTarget:
		for _, roleID := range target.RoleIDs {
			acc.addAll(matching(users, func(u *models.User) bool {
				return u.HasRole(roleID)
			}))
		}
	case models.DeptRoleTarget:
		for _, pair := range target.Pairs {
			acc.addAll(matching(users, func(u *models.User) bool {
				return u.DepartmentID == pair.DepartmentID && u.HasRole(pair.RoleID)
			}))
		}
	}

	return acc.items
}

func matching(users []*models.User, pred func(*models.User) bool) []string {
	var ids []string

	for _, u := range users {
		if u != nil && pred(u) {
			ids = append(ids, u.ID)
		}
	}

	return ids
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *orderedSet) addAll(ids []string) {
	for _, id := range ids {
		if _, ok := s.seen[id]; ok {
			continue
		}

		s.seen[id] = struct{}{}
		s.items = append(s.items, id)
	}
}
