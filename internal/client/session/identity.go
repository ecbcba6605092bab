package session

import (
	"strings"

	"github.com/dmitrijs2005/equiplookup/internal/client/provider"
)

// Role is the closed set of roles the client gates features on.
type Role int

const (
	RoleNone Role = iota
	RoleUser
	RoleAdmin
)

// ParseRole maps a provider role name to a Role. Unknown names map to
// RoleNone.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser
	case "admin":
		return RoleAdmin
	default:
		return RoleNone
	}
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Identity is the resolved profile of the signed-in user.
type Identity struct {
	ID       string
	Email    string
	Username string
	Role     Role
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

func newIdentity(u provider.User, p *provider.Profile) Identity {
	id := Identity{ID: u.ID, Email: u.Email, Role: RoleNone}
	if p != nil {
		id.Username = strings.TrimSpace(p.Username)
		id.Role = ParseRole(p.Role)
	}
	if id.Username == "" {
		if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
			id.Username = local
		} else {
			id.Username = "User"
		}
	}
	return id
}

// State of the reconciler.
type State int

const (
	StateUninitialized State = iota
	StateUnauthenticated
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// Snapshot is delivered to watchers after every transition.
type Snapshot struct {
	State    State
	Identity Identity
}
