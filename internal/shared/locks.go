package shared

import "fmt"

// RoleGrantsLockKey names the advisory lock taken while a role's menu grants are rewritten.
func RoleGrantsLockKey(role string) string {
	return fmt.Sprintf("role_menus:%s", role)
}

// LoginFailuresKey builds the redis key counting failed logins for a username.
func LoginFailuresKey(username string) string {
	return fmt.Sprintf("login:failures:%s", username)
}
