package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmdesk/helmdesk/internal/session"
	"github.com/helmdesk/helmdesk/internal/shared"
)

type gatewayFixture struct {
	gateway  *Gateway
	sessions *session.Store
	accounts *session.MemoryRepository
	roles    *Resolver
}

func newGatewayFixture(t *testing.T) gatewayFixture {
	t.Helper()
	accounts := session.NewMemoryRepository()
	store := session.NewStore(accounts)
	resolver := NewResolver(NewMemoryRepository(), time.Second)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return gatewayFixture{
		gateway:  NewGateway(store, resolver, logger, nil),
		sessions: store,
		accounts: accounts,
		roles:    resolver,
	}
}

func (f gatewayFixture) login(t *testing.T, accountID string, roles ...Role) string {
	t.Helper()
	f.accounts.SetAccount(accountID, true)
	require.NoError(t, f.roles.ReplaceAccountRoles(context.Background(), accountID, roles))
	sess, err := f.sessions.Issue(context.Background(), accountID)
	require.NoError(t, err)
	return sess.Token
}

func (f gatewayFixture) serve(op Operation, header string) *httptest.ResponseRecorder {
	handler := f.gateway.RequireSession(f.gateway.Require(op)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, _ := shared.PrincipalFromContext(r.Context())
		w.Header().Set("X-Account", p.AccountID)
		w.WriteHeader(http.StatusNoContent)
	})))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		token, ok := BearerToken(tc.header)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.token, token, tc.header)
	}
}

func TestGatewayMissingHeader(t *testing.T) {
	f := newGatewayFixture(t)
	rr := f.serve(OpManageUsers, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthorized", errorBody(t, rr))
}

func TestGatewayUnknownToken(t *testing.T) {
	f := newGatewayFixture(t)
	rr := f.serve(OpManageUsers, "Bearer deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, session.ErrNoSession.Error(), errorBody(t, rr))
}

func TestGatewayDisabledAccount(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.login(t, "acct", RoleAdmin)
	f.accounts.SetAccount("acct", false)

	rr := f.serve(OpManageUsers, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, session.ErrDisabled.Error(), errorBody(t, rr))
}

func TestGatewayInsufficientRole(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.login(t, "acct", RoleUser)

	rr := f.serve(OpManageUsers, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "insufficient permission", errorBody(t, rr))

	rr = f.serve(OpUploadPackages, "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "acct", rr.Header().Get("X-Account"))
}

func TestGatewayAuthenticationOnlyOperation(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.login(t, "acct")

	rr := f.serve(OpUploadWorkflows, "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestGatewayRevokedRoleTakesEffectNextRequest(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.login(t, "acct", RoleAdmin)

	require.Equal(t, http.StatusNoContent, f.serve(OpManageRoles, "Bearer "+token).Code)
	require.NoError(t, f.roles.ReplaceAccountRoles(context.Background(), "acct", []Role{RoleViewer}))
	assert.Equal(t, http.StatusForbidden, f.serve(OpManageRoles, "Bearer "+token).Code)
}

func TestGatewayUnknownOperationDenied(t *testing.T) {
	f := newGatewayFixture(t)
	token := f.login(t, "acct", RoleAdmin)
	rr := f.serve(Operation("reports.export"), "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

type failingChecker struct{}

func (failingChecker) HasAnyRole(context.Context, string, []Role) (bool, error) {
	return false, errors.New("db down")
}

type failingValidator struct{}

func (failingValidator) Validate(context.Context, string) (string, error) {
	return "", errors.New("db down")
}

func TestGatewayFailsClosed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	g := NewGateway(failingValidator{}, failingChecker{}, logger, nil)
	_, err := g.Authenticate(context.Background(), "Bearer abc")
	assert.Equal(t, shared.KindAuthentication, shared.KindOf(err))

	err = g.Authorize(context.Background(), "acct", OpManageUsers)
	assert.Equal(t, shared.KindAuthentication, shared.KindOf(err))

	assert.NoError(t, g.Authorize(context.Background(), "acct", OpUploadWorkflows))
}

func TestRequireWithoutPrincipal(t *testing.T) {
	f := newGatewayFixture(t)
	handler := f.gateway.Require(OpUploadWorkflows)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
