package model

// Role is the workflow role of the acting user.
type Role string

const (
	RoleSeller             Role = "seller"
	RoleApprover           Role = "approver"
	RoleDepartmentReviewer Role = "department_reviewer"
	RoleAdmin              Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSeller, RoleApprover, RoleDepartmentReviewer, RoleAdmin:
		return true
	}
	return false
}

// Session carries the acting user through every call that needs a
// permission check. There is no ambient global user; callers construct a
// Session from the authenticated request and pass it explicitly.
type Session struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}
