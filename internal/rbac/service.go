package rbac

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/helmdesk/helmdesk/internal/shared"
)

// Repository defines persistence for role assignments and menu grants.
type Repository interface {
	RolesOf(ctx context.Context, accountID string) ([]Role, error)
	HasAnyRole(ctx context.Context, accountID string, roles []Role) (bool, error)
	// GrantedMenus returns one row per grant, grouped in the order of roles.
	GrantedMenus(ctx context.Context, roles []Role) ([]MenuEntry, error)
	ReplaceAccountRoles(ctx context.Context, accountID string, roles []Role) error
	ReplaceRoleMenus(ctx context.Context, role Role, menuIDs []string) error
}

// Resolver answers role and menu questions. Nothing is cached: every call
// re-reads the store so revocations apply on the next request.
type Resolver struct {
	repo    Repository
	timeout time.Duration
}

// NewResolver constructs a Resolver. timeout bounds each store call.
func NewResolver(repo Repository, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{repo: repo, timeout: timeout}
}

// RolesOf returns the roles assigned to accountID.
func (s *Resolver) RolesOf(ctx context.Context, accountID string) ([]Role, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	roles, err := s.repo.RolesOf(ctx, accountID)
	if err != nil {
		return nil, shared.Internal("load roles", err)
	}
	return roles, nil
}

// MenusFor returns the union of menus granted to roles, deduplicated by id and
// ordered by sort order.
func (s *Resolver) MenusFor(ctx context.Context, roles []Role) ([]MenuEntry, error) {
	if len(roles) == 0 {
		return []MenuEntry{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	granted, err := s.repo.GrantedMenus(ctx, roles)
	if err != nil {
		return nil, shared.Internal("load menus", err)
	}
	return UnionMenus(granted), nil
}

// HasRole reports whether accountID currently holds role.
func (s *Resolver) HasRole(ctx context.Context, accountID string, role Role) (bool, error) {
	return s.HasAnyRole(ctx, accountID, []Role{role})
}

// HasAnyRole reports whether accountID currently holds at least one of roles.
func (s *Resolver) HasAnyRole(ctx context.Context, accountID string, roles []Role) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := s.repo.HasAnyRole(ctx, accountID, roles)
	if err != nil {
		return false, shared.Internal("check roles", err)
	}
	return ok, nil
}

// ReplaceAccountRoles swaps the full role set of accountID.
func (s *Resolver) ReplaceAccountRoles(ctx context.Context, accountID string, roles []Role) error {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	deduped, err := ParseRoles(names)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.ReplaceAccountRoles(ctx, accountID, deduped); err != nil {
		if shared.KindOf(err) != shared.KindInternal {
			return err
		}
		return shared.Internal("replace account roles", err)
	}
	return nil
}

// ReplaceRoleMenus swaps the full grant set of role. Concurrent updates of the
// same role resolve as last writer wins.
func (s *Resolver) ReplaceRoleMenus(ctx context.Context, role Role, menuIDs []string) error {
	if !role.Valid() {
		return shared.Validation("unknown role %q", role)
	}
	ids := make([]string, 0, len(menuIDs))
	seen := make(map[string]struct{}, len(menuIDs))
	for _, id := range menuIDs {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return shared.Validation("invalid menu id %q", id)
		}
		key := parsed.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ids = append(ids, key)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.ReplaceRoleMenus(ctx, role, ids); err != nil {
		if shared.KindOf(err) != shared.KindInternal {
			return err
		}
		return shared.Internal("replace role menus", err)
	}
	return nil
}

// RoleMenus returns the menus granted to a single role.
func (s *Resolver) RoleMenus(ctx context.Context, role Role) ([]MenuEntry, error) {
	if !role.Valid() {
		return nil, shared.Validation("unknown role %q", role)
	}
	return s.MenusFor(ctx, []Role{role})
}

// ListRoleMenus returns every role with its granted menus.
func (s *Resolver) ListRoleMenus(ctx context.Context) ([]RoleMenus, error) {
	out := make([]RoleMenus, 0, len(AllRoles()))
	for _, role := range AllRoles() {
		menus, err := s.RoleMenus(ctx, role)
		if err != nil {
			return nil, err
		}
		out = append(out, RoleMenus{Role: role, Menus: menus})
	}
	return out, nil
}

// UnionMenus deduplicates entries by id (first occurrence wins) and sorts them
// by sort order, keeping input order among equal sort orders.
func UnionMenus(entries []MenuEntry) []MenuEntry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]MenuEntry, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortOrder < out[j].SortOrder
	})
	return out
}
