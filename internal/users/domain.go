package users

import (
	"time"

	"github.com/helmdesk/helmdesk/internal/rbac"
)

// DefaultAdminID is the seeded administrator that can never be deleted.
const DefaultAdminID = "00000000-0000-0000-0000-000000000001"

// User is an account as shown to administrators.
type User struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	DisplayName string      `json:"displayName"`
	Email       string      `json:"email"`
	IsActive    bool        `json:"isActive"`
	Roles       []rbac.Role `json:"roles"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// CreateInput carries a new account.
type CreateInput struct {
	Username       string   `json:"username" validate:"required,max=64"`
	PasswordDigest string   `json:"passwordDigest"`
	Password       string   `json:"password"`
	DisplayName    string   `json:"displayName" validate:"max=128"`
	Email          string   `json:"email" validate:"omitempty,email"`
	IsActive       *bool    `json:"isActive"`
	Roles          []string `json:"roles"`
}

// UpdateInput carries a partial account update. Nil fields are left alone;
// a non-nil Roles replaces the full role set.
type UpdateInput struct {
	DisplayName    *string   `json:"displayName" validate:"omitempty,max=128"`
	Email          *string   `json:"email" validate:"omitempty,email"`
	PasswordDigest *string   `json:"passwordDigest"`
	Password       *string   `json:"password"`
	IsActive       *bool     `json:"isActive"`
	Roles          *[]string `json:"roles"`
}

// NewAccount is the validated record persisted by Create.
type NewAccount struct {
	Username     string
	PasswordHash string
	DisplayName  string
	Email        string
	IsActive     bool
	Roles        []rbac.Role
}

// AccountPatch is the validated change set persisted by Update.
type AccountPatch struct {
	DisplayName  *string
	Email        *string
	PasswordHash *string
	IsActive     *bool
	Roles        []rbac.Role
	ReplaceRoles bool
}
