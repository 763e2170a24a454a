package auth

import (
	"time"

	"github.com/helmdesk/helmdesk/internal/rbac"
)

// Account is a stored user principal.
type Account struct {
	ID           string
	Username     string
	DisplayName  string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LoginInput carries the credentials of a login attempt.
type LoginInput struct {
	Username string
	Digest   string
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Account      Account
	Roles        []rbac.Role
	Menus        []rbac.MenuEntry
	SessionToken string
	ExpiresAt    time.Time
}

// Profile is the public view of the current account.
type Profile struct {
	ID          string           `json:"id"`
	Username    string           `json:"username"`
	DisplayName string           `json:"displayName"`
	Email       string           `json:"email,omitempty"`
	Roles       []rbac.Role      `json:"roles"`
	Menus       []rbac.MenuEntry `json:"menus"`
}
