package rbac

import (
	"strings"
	"time"

	"github.com/helmdesk/helmdesk/internal/shared"
)

// Role is a named permission tier.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
)

// AllRoles lists the closed role enumeration in display order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleUser, RoleViewer}
}

// Valid reports whether r belongs to the enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleViewer:
		return true
	default:
		return false
	}
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", shared.Validation("unknown role %q", s)
	}
	return r, nil
}

// ParseRoles validates and deduplicates role names, keeping first occurrence order.
func ParseRoles(names []string) ([]Role, error) {
	seen := make(map[Role]struct{}, len(names))
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	return roles, nil
}

// MenuEntry is a navigation node. Entries form a tree through ParentID.
type MenuEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Icon      string    `json:"icon"`
	ParentID  *string   `json:"parentId"`
	SortOrder int       `json:"sortOrder"`
	IsVisible bool      `json:"isVisible"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RoleMenus pairs a role with the menus granted to it.
type RoleMenus struct {
	Role  Role        `json:"role"`
	Menus []MenuEntry `json:"menus"`
}
