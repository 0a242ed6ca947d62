package models

import (
	"encoding/json"
	"fmt"
)

// SelectorTarget is one variant of an approver selector. The set of
// implementations is closed: UserTarget, DepartmentTarget, RoleTarget and
// DeptRoleTarget.
type SelectorTarget interface {
	Type() SelectorType
	isSelectorTarget()
}

// UserTarget names approvers explicitly.
type UserTarget struct {
	UserIDs []string
}

// DepartmentTarget selects every member of the listed departments.
type DepartmentTarget struct {
	DepartmentIDs []string
}

// RoleTarget selects every holder of any listed role.
type RoleTarget struct {
	RoleIDs []string
}

// DeptRolePair matches users of DepartmentID holding RoleID.
type DeptRolePair struct {
	DepartmentID string `json:"departmentId" validate:"required"`
	RoleID       string `json:"roleId"       validate:"required"`
}

// DeptRoleTarget selects users matching any of its pairs.
type DeptRoleTarget struct {
	Pairs []DeptRolePair
}

func (UserTarget) Type() SelectorType       { return SelectorUser }
func (DepartmentTarget) Type() SelectorType { return SelectorDepartment }
func (RoleTarget) Type() SelectorType       { return SelectorRole }
func (DeptRoleTarget) Type() SelectorType   { return SelectorDeptRole }

func (UserTarget) isSelectorTarget()       {}
func (DepartmentTarget) isSelectorTarget() {}
func (RoleTarget) isSelectorTarget()       {}
func (DeptRoleTarget) isSelectorTarget()   {}

// ApproverSelector is a stage rule that expands to approver user IDs.
//
// Dedupe is carried for compatibility with stored processes; resolution
// always deduplicates.
type ApproverSelector struct {
	Target SelectorTarget
	Dedupe bool
}

// selectorWire is the stored shape: a flat object with optional per-variant fields.
type selectorWire struct {
	Type          SelectorType   `json:"type"`
	UserIDs       []string       `json:"userIds,omitempty"`
	DepartmentIDs []string       `json:"departmentIds,omitempty"`
	RoleIDs       []string       `json:"roleIds,omitempty"`
	DeptRolePairs []DeptRolePair `json:"deptRolePairs,omitempty"`
	Dedupe        bool           `json:"dedupe"`
}

func (s ApproverSelector) MarshalJSON() ([]byte, error) {
	wire := selectorWire{Dedupe: s.Dedupe}

	switch t := s.Target.(type) {
	case UserTarget:
		wire.Type, wire.UserIDs = SelectorUser, t.UserIDs
	case DepartmentTarget:
		wire.Type, wire.DepartmentIDs = SelectorDepartment, t.DepartmentIDs
	case RoleTarget:
		wire.Type, wire.RoleIDs = SelectorRole, t.RoleIDs
	case DeptRoleTarget:
		wire.Type, wire.DeptRolePairs = SelectorDeptRole, t.Pairs
	default:
		return nil, fmt.Errorf("%w: selector target %T", ErrInvalidEnumValue, s.Target)
	}

	return json.Marshal(wire)
}

// UnmarshalJSON decodes the flat stored shape. Fields that belong to a
// different variant than "type" are ignored.
func (s *ApproverSelector) UnmarshalJSON(b []byte) error {
	var wire selectorWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	switch wire.Type {
	case SelectorUser:
		s.Target = UserTarget{UserIDs: wire.UserIDs}
	case SelectorDepartment:
		s.Target = DepartmentTarget{DepartmentIDs: wire.DepartmentIDs}
	case SelectorRole:
		s.Target = RoleTarget{RoleIDs: wire.RoleIDs}
	case SelectorDeptRole:
		s.Target = DeptRoleTarget{Pairs: wire.DeptRolePairs}
	default:
		return fmt.Errorf("%w: selector type %q", ErrInvalidEnumValue, wire.Type)
	}

	s.Dedupe = wire.Dedupe

	return nil
}

// ByUsers, ByDepartments, ByRoles and ByDeptRoles build selectors.
func ByUsers(userIDs ...string) ApproverSelector {
	return ApproverSelector{Target: UserTarget{UserIDs: userIDs}, Dedupe: true}
}

func ByDepartments(departmentIDs ...string) ApproverSelector {
	return ApproverSelector{Target: DepartmentTarget{DepartmentIDs: departmentIDs}, Dedupe: true}
}

func ByRoles(roleIDs ...string) ApproverSelector {
	return ApproverSelector{Target: RoleTarget{RoleIDs: roleIDs}, Dedupe: true}
}

func ByDeptRoles(pairs ...DeptRolePair) ApproverSelector {
	return ApproverSelector{Target: DeptRoleTarget{Pairs: pairs}, Dedupe: true}
}
