// Package models holds the server-side persistence types.
package models

import "time"

// Role names stored in users.role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account of the identity provider together with its profile
// (display name and role).
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash []byte
	Role         string
	CreatedAt    time.Time
}

// IsAdmin reports whether the user may write to the catalog.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
