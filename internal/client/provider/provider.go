// Package provider is the client side of the identity service: it signs
// users in and out, keeps the session (persisted to a file between runs),
// refreshes expired access tokens and publishes auth state changes.
package provider

import (
	"context"
	"time"
)

// Event names an auth state change.
type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the token pair issued at sign-in. Only this package reads
// the tokens.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
	User         User      `json:"user"`
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Profile holds the role and display name of a user.
type Profile struct {
	ID       string
	Role     string
	Username string
}

// AuthChange is delivered to OnAuthStateChange listeners. Session is nil
// for EventSignedOut.
type AuthChange struct {
	Event   Event
	Session *Session
}

// NewUser describes an account created by an admin.
type NewUser struct {
	Email    string
	Password string
	Username string
	Role     string
}

// Provider is the identity surface consumed by the session reconciler.
type Provider interface {
	// OnAuthStateChange registers fn for every later auth change. The
	// returned func removes the registration.
	OnAuthStateChange(fn func(AuthChange)) (unsubscribe func())
	// GetSession returns the live session, or nil when signed out.
	GetSession(ctx context.Context) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// GetProfile returns common.ErrorNotFound when the user has no profile.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
}
