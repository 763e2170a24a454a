package rbac

import (
	"context"
	"sync"

	"github.com/helmdesk/helmdesk/internal/shared"
)

// MemoryRepository is an in-process Repository for tests and local tooling.
type MemoryRepository struct {
	mu     sync.Mutex
	roles  map[string][]Role
	menus  map[string]MenuEntry
	grants map[Role][]string
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		roles:  make(map[string][]Role),
		menus:  make(map[string]MenuEntry),
		grants: make(map[Role][]string),
	}
}

// PutMenu inserts or replaces a menu entry.
func (m *MemoryRepository) PutMenu(entry MenuEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.menus[entry.ID] = entry
}

// DeleteMenu removes a menu and every grant referencing it.
func (m *MemoryRepository) DeleteMenu(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.menus, id)
	for role, ids := range m.grants {
		kept := ids[:0]
		for _, g := range ids {
			if g != id {
				kept = append(kept, g)
			}
		}
		m.grants[role] = kept
	}
}

// RolesOf implements Repository.
func (m *MemoryRepository) RolesOf(_ context.Context, accountID string) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Role(nil), m.roles[accountID]...), nil
}

// HasAnyRole implements Repository.
func (m *MemoryRepository) HasAnyRole(_ context.Context, accountID string, roles []Role) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, held := range m.roles[accountID] {
		for _, want := range roles {
			if held == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// GrantedMenus implements Repository.
func (m *MemoryRepository) GrantedMenus(_ context.Context, roles []Role) ([]MenuEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MenuEntry
	for _, role := range roles {
		for _, id := range m.grants[role] {
			if entry, ok := m.menus[id]; ok {
				out = append(out, entry)
			}
		}
	}
	return out, nil
}

// ReplaceAccountRoles implements Repository.
func (m *MemoryRepository) ReplaceAccountRoles(_ context.Context, accountID string, roles []Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[accountID] = append([]Role(nil), roles...)
	return nil
}

// ReplaceRoleMenus implements Repository.
func (m *MemoryRepository) ReplaceRoleMenus(_ context.Context, role Role, menuIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range menuIDs {
		if _, ok := m.menus[id]; !ok {
			return shared.Validation("unknown menu id %q", id)
		}
	}
	m.grants[role] = append([]string(nil), menuIDs...)
	return nil
}
