package menus

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	menus map[string]rbac.MenuEntry
	err   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{menus: make(map[string]rbac.MenuEntry)}
}

func (m *memoryRepo) List(context.Context) ([]rbac.MenuEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]rbac.MenuEntry, 0, len(m.menus))
	for _, e := range m.menus {
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *memoryRepo) Create(_ context.Context, in Input) (rbac.MenuEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in.ParentID != nil {
		if _, ok := m.menus[*in.ParentID]; !ok {
			return rbac.MenuEntry{}, shared.Validation("parent menu does not exist")
		}
	}
	e := rbac.MenuEntry{ID: uuid.NewString(), Name: in.Name, Path: in.Path, Icon: in.Icon, ParentID: in.ParentID, SortOrder: in.SortOrder, IsVisible: in.visible()}
	m.menus[e.ID] = e
	return e, nil
}

func (m *memoryRepo) Update(_ context.Context, id string, in Input) (rbac.MenuEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.menus[id]; !ok {
		return rbac.MenuEntry{}, shared.NotFound("menu")
	}
	e := rbac.MenuEntry{ID: id, Name: in.Name, Path: in.Path, Icon: in.Icon, ParentID: in.ParentID, SortOrder: in.SortOrder, IsVisible: in.visible()}
	m.menus[id] = e
	return e, nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.menus[id]; !ok {
		return shared.NotFound("menu")
	}
	delete(m.menus, id)
	return nil
}

func TestMenuLifecycle(t *testing.T) {
	svc := NewService(newMemoryRepo(), 0)
	ctx := context.Background()

	hidden := false
	second, err := svc.Create(ctx, Input{Name: "Reports", SortOrder: 2, IsVisible: &hidden})
	require.NoError(t, err)
	assert.False(t, second.IsVisible)

	first, err := svc.Create(ctx, Input{Name: "Home", Path: "/", SortOrder: 1})
	require.NoError(t, err)
	assert.True(t, first.IsVisible)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Home", list[0].Name)

	updated, err := svc.Update(ctx, second.ID, Input{Name: "Reports", ParentID: &first.ID, SortOrder: 3})
	require.NoError(t, err)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, first.ID, *updated.ParentID)

	require.NoError(t, svc.Delete(ctx, second.ID))
	err = svc.Delete(ctx, second.ID)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestMenuValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), 0)
	ctx := context.Background()

	m, err := svc.Create(ctx, Input{Name: "Self"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, m.ID, Input{Name: "Self", ParentID: &m.ID})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))

	missing := uuid.NewString()
	_, err = svc.Create(ctx, Input{Name: "Orphan", ParentID: &missing})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.Update(ctx, "bad-id", Input{Name: "x"})
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestMenuStoreFailureIsInternal(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = errors.New("connection reset")
	svc := NewService(repo, 0)

	_, err := svc.List(context.Background())
	assert.Equal(t, shared.KindInternal, shared.KindOf(err))
	assert.Equal(t, "internal server error", shared.UserSafeMessage(err))
}
