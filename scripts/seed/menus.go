package main

import "github.com/helmdesk/helmdesk/internal/rbac"

type seedMenu struct {
	ID        string
	Name      string
	Path      string
	Icon      string
	ParentID  string
	SortOrder int
}

const (
	menuDashboard = "10000000-0000-0000-0000-000000000001"
	menuPackages  = "10000000-0000-0000-0000-000000000002"
	menuWorkflows = "10000000-0000-0000-0000-000000000003"
	menuAdmin     = "10000000-0000-0000-0000-000000000004"
	menuUsers     = "10000000-0000-0000-0000-000000000005"
	menuRoles     = "10000000-0000-0000-0000-000000000006"
	menuMenus     = "10000000-0000-0000-0000-000000000007"
)

// Parents precede children so inserts satisfy the parent foreign key.
var defaultMenus = []seedMenu{
	{ID: menuDashboard, Name: "Dashboard", Path: "/", Icon: "home", SortOrder: 0},
	{ID: menuPackages, Name: "Packages", Path: "/packages", Icon: "package", SortOrder: 10},
	{ID: menuWorkflows, Name: "Workflows", Path: "/workflows", Icon: "video", SortOrder: 20},
	{ID: menuAdmin, Name: "Administration", Icon: "settings", SortOrder: 90},
	{ID: menuUsers, Name: "Users", Path: "/admin/users", Icon: "users", ParentID: menuAdmin, SortOrder: 91},
	{ID: menuRoles, Name: "Roles", Path: "/admin/roles", Icon: "shield", ParentID: menuAdmin, SortOrder: 92},
	{ID: menuMenus, Name: "Menus", Path: "/admin/menus", Icon: "list", ParentID: menuAdmin, SortOrder: 93},
}

var defaultGrants = map[rbac.Role][]string{
	rbac.RoleAdmin:  {menuDashboard, menuPackages, menuWorkflows, menuAdmin, menuUsers, menuRoles, menuMenus},
	rbac.RoleUser:   {menuDashboard, menuPackages, menuWorkflows},
	rbac.RoleViewer: {menuDashboard, menuWorkflows},
}
