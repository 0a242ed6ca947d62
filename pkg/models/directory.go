package models

// Department is a flat organizational unit. Departments have no hierarchy.
type Department struct {
	ID   string `json:"id"   validate:"required"`
	Name string `json:"name" validate:"required"`
}

// Role is a flat organizational role.
type Role struct {
	ID   string `json:"id"   validate:"required"`
	Name string `json:"name" validate:"required"`
}

// User is a directory entry. A user belongs to at most one department and
// holds zero or more roles.
type User struct {
	ID           string   `json:"id"           validate:"required"`
	DisplayName  string   `json:"displayName"`
	Email        string   `json:"email"        validate:"omitempty,email"`
	DepartmentID string   `json:"departmentId"`
	RoleIDs      []string `json:"roleIds"`
}

// HasRole reports whether the user holds roleID.
func (u *User) HasRole(roleID string) bool {
	for _, id := range u.RoleIDs {
		if id == roleID {
			return true
		}
	}

	return false
}

// Directory is a read-only snapshot of users, departments and roles.
type Directory struct {
	Users       []*User       `json:"users"`
	Departments []*Department `json:"departments"`
	Roles       []*Role       `json:"roles"`
}

// UserByID returns the user with the given id, or nil.
func (d *Directory) UserByID(id string) *User {
	if d == nil {
		return nil
	}

	for _, u := range d.Users {
		if u != nil && u.ID == id {
			return u
		}
	}

	return nil
}
