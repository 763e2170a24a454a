package rbac

// Operation names a privileged action guarded by the gateway.
type Operation string

const (
	OpManageUsers     Operation = "users.manage"
	OpManageRoles     Operation = "roles.manage"
	OpManageMenus     Operation = "menus.manage"
	OpManagePackages  Operation = "packages.manage"
	OpManageWorkflows Operation = "workflows.manage"
	OpUploadPackages  Operation = "upload.packages"
	OpUploadWorkflows Operation = "upload.workflows"
	OpViewSelf        Operation = "session.self"
)

// Policy maps each operation to the roles allowed to perform it. An empty
// role set admits any authenticated account.
type Policy map[Operation][]Role

// DefaultPolicy is the static operation table enforced on every request.
func DefaultPolicy() Policy {
	return Policy{
		OpManageUsers:     {RoleAdmin},
		OpManageRoles:     {RoleAdmin},
		OpManageMenus:     {RoleAdmin},
		OpManagePackages:  {RoleAdmin, RoleUser},
		OpManageWorkflows: {},
		OpUploadPackages:  {RoleAdmin, RoleUser},
		OpUploadWorkflows: {},
		OpViewSelf:        {},
	}
}

// Lookup returns the roles for op. ok is false for operations missing from
// the table, which callers must deny.
func (p Policy) Lookup(op Operation) (roles []Role, ok bool) {
	roles, ok = p[op]
	return roles, ok
}
