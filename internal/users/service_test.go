package users

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/helmdesk/helmdesk/internal/auth"
	"github.com/helmdesk/helmdesk/internal/rbac"
	"github.com/helmdesk/helmdesk/internal/shared"
)

type memoryRepo struct {
	mu     sync.Mutex
	users  map[string]User
	hashes map[string]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]User), hashes: make(map[string]string)}
}

func (m *memoryRepo) List(context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.NotFound("user")
	}
	return u, nil
}

func (m *memoryRepo) Create(_ context.Context, acct NewAccount) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == acct.Username {
			return User{}, shared.Conflict("username already exists", nil)
		}
	}
	now := time.Now().UTC()
	u := User{
		ID:          uuid.NewString(),
		Username:    acct.Username,
		DisplayName: acct.DisplayName,
		Email:       acct.Email,
		IsActive:    acct.IsActive,
		Roles:       acct.Roles,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.users[u.ID] = u
	m.hashes[u.ID] = acct.PasswordHash
	return u, nil
}

func (m *memoryRepo) Update(_ context.Context, id string, patch AccountPatch) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.NotFound("user")
	}
	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if patch.PasswordHash != nil {
		m.hashes[id] = *patch.PasswordHash
	}
	if patch.ReplaceRoles {
		u.Roles = patch.Roles
	}
	m.users[id] = u
	return u, nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return shared.NotFound("user")
	}
	delete(m.users, id)
	return nil
}

func (m *memoryRepo) seedAdmin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[DefaultAdminID] = User{ID: DefaultAdminID, Username: "admin", IsActive: true, Roles: []rbac.Role{rbac.RoleAdmin}}
}

func newService(repo Repository) *Service {
	return NewService(repo, auth.NewHasher(bcrypt.MinCost), nil, slog.New(slog.NewTextHandler(io.Discard, nil)), "", 0)
}

func TestCreateHashesDigestAndDedupesRoles(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)

	u, err := svc.Create(context.Background(), CreateInput{
		Username:       " bob ",
		PasswordDigest: auth.TransportDigest("hunter22"),
		Roles:          []string{"user", "viewer", "user"},
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.True(t, u.IsActive)
	assert.Equal(t, []rbac.Role{rbac.RoleUser, rbac.RoleViewer}, u.Roles)

	hash := repo.hashes[u.ID]
	assert.True(t, auth.NewHasher(bcrypt.MinCost).Verify(auth.TransportDigest("hunter22"), hash))
	assert.NotEqual(t, auth.TransportDigest("hunter22"), hash)
}

func TestCreateWithFallbackMarkerHashesRealDigest(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)

	marker := auth.FallbackMarker + base64.StdEncoding.EncodeToString([]byte("hunter22"))
	u, err := svc.Create(context.Background(), CreateInput{Username: "carol", Password: marker})
	require.NoError(t, err)

	hasher := auth.NewHasher(bcrypt.MinCost)
	assert.True(t, hasher.Verify(auth.TransportDigest("hunter22"), repo.hashes[u.ID]))
	assert.False(t, hasher.Verify(marker, repo.hashes[u.ID]))
}

func TestCreateValidation(t *testing.T) {
	svc := newService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Username: "dave"})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))

	_, err = svc.Create(ctx, CreateInput{Username: "dave", PasswordDigest: auth.TransportDigest("x"), Roles: []string{"root"}})
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestCreateDuplicateUsername(t *testing.T) {
	svc := newService(newMemoryRepo())
	ctx := context.Background()
	in := CreateInput{Username: "erin", PasswordDigest: auth.TransportDigest("pw")}

	_, err := svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = svc.Create(ctx, in)
	assert.Equal(t, shared.KindConflict, shared.KindOf(err))
	assert.Equal(t, "username already exists", shared.UserSafeMessage(err))
}

func TestUpdateReplacesRolesOnlyWhenProvided(t *testing.T) {
	svc := newService(newMemoryRepo())
	ctx := context.Background()
	u, err := svc.Create(ctx, CreateInput{Username: "frank", PasswordDigest: auth.TransportDigest("pw"), Roles: []string{"admin"}})
	require.NoError(t, err)

	name := "Frank"
	u, err = svc.Update(ctx, u.ID, UpdateInput{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Frank", u.DisplayName)
	assert.Equal(t, []rbac.Role{rbac.RoleAdmin}, u.Roles)

	roles := []string{"viewer"}
	u, err = svc.Update(ctx, u.ID, UpdateInput{Roles: &roles})
	require.NoError(t, err)
	assert.Equal(t, []rbac.Role{rbac.RoleViewer}, u.Roles)

	empty := []string{}
	u, err = svc.Update(ctx, u.ID, UpdateInput{Roles: &empty})
	require.NoError(t, err)
	assert.Empty(t, u.Roles)

	_, err = svc.Update(ctx, "not-a-uuid", UpdateInput{})
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestDeleteNeverRemovesSeedAdministrator(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedAdmin()
	svc := newService(repo)

	err := svc.Delete(context.Background(), DefaultAdminID, DefaultAdminID)
	require.Error(t, err)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	assert.Equal(t, "cannot delete the default administrator", shared.UserSafeMessage(err))

	_, err = repo.Get(context.Background(), DefaultAdminID)
	assert.NoError(t, err)
}

func TestDeleteRefusesSeedAdministratorInAnySpelling(t *testing.T) {
	for name, id := range map[string]string{
		"canonical":  DefaultAdminID,
		"hyphenless": "00000000000000000000000000000001",
		"braced":     "{00000000-0000-0000-0000-000000000001}",
		"urn":        "urn:uuid:00000000-0000-0000-0000-000000000001",
		"uppercase":  "URN:UUID:00000000-0000-0000-0000-000000000001",
	} {
		t.Run(name, func(t *testing.T) {
			repo := newMemoryRepo()
			repo.seedAdmin()
			svc := newService(repo)

			err := svc.Delete(context.Background(), DefaultAdminID, id)
			require.Error(t, err)
			assert.Equal(t, shared.KindValidation, shared.KindOf(err))

			_, err = repo.Get(context.Background(), DefaultAdminID)
			assert.NoError(t, err)
		})
	}
}

func TestGetAndUpdateAcceptNonCanonicalIDs(t *testing.T) {
	repo := newMemoryRepo()
	repo.seedAdmin()
	svc := newService(repo)
	ctx := context.Background()

	u, err := svc.Get(ctx, "{00000000-0000-0000-0000-000000000001}")
	require.NoError(t, err)
	assert.Equal(t, DefaultAdminID, u.ID)

	name := "Root"
	u, err = svc.Update(ctx, "00000000000000000000000000000001", UpdateInput{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, DefaultAdminID, u.ID)
}

func TestDeleteMissingUser(t *testing.T) {
	svc := newService(newMemoryRepo())
	err := svc.Delete(context.Background(), DefaultAdminID, uuid.NewString())
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
}
