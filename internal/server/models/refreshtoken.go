package models

import "time"

// RefreshToken is an issued refresh token. SessionID ties it to the access
// tokens minted from it, so a sign-out can revoke both.
type RefreshToken struct {
	ID        string
	UserID    string
	SessionID string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
