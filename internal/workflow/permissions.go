package workflow

import "github.com/ethansammiq/deal-desk-sub004/internal/model"

// Action is a permission-checked operation on a deal.
type Action string

const (
	ActionSubmit          Action = "submit"
	ActionTransition      Action = "transition"
	ActionApprove         Action = "approve"
	ActionRequestRevision Action = "request_revision"
	ActionComment         Action = "comment"
	ActionEdit            Action = "edit"
	ActionImport          Action = "import"
)

// rolePermissions is the explicit permission matrix: every check is a
// single indexed lookup, no runtime dispatch.
var rolePermissions = map[model.Role]map[Action]bool{
	model.RoleSeller: {
		ActionSubmit:     true,
		ActionTransition: true,
		ActionComment:    true,
		ActionEdit:       true,
	},
	model.RoleApprover: {
		ActionTransition:      true,
		ActionApprove:         true,
		ActionRequestRevision: true,
		ActionComment:         true,
	},
	model.RoleDepartmentReviewer: {
		ActionApprove:         true,
		ActionRequestRevision: true,
		ActionComment:         true,
	},
	model.RoleAdmin: {
		ActionSubmit:          true,
		ActionTransition:      true,
		ActionApprove:         true,
		ActionRequestRevision: true,
		ActionComment:         true,
		ActionEdit:            true,
		ActionImport:          true,
	},
}

// Allowed reports whether the role holds the permission for the action.
// Unknown roles hold nothing.
func Allowed(role model.Role, action Action) bool {
	return rolePermissions[role][action]
}

// PermissionsFor returns the actions a role may perform, in a fixed order
// suitable for display.
func PermissionsFor(role model.Role) []Action {
	ordered := []Action{
		ActionSubmit, ActionTransition, ActionApprove,
		ActionRequestRevision, ActionComment, ActionEdit, ActionImport,
	}
	var out []Action
	for _, a := range ordered {
		if rolePermissions[role][a] {
			out = append(out, a)
		}
	}
	return out
}
