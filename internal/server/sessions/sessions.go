// Package sessions tracks revoked sign-in sessions and fans out auth events
// to the clients watching them.
package sessions

import (
	"context"
	"time"
)

// EventSignedOut is published when every session of a user was revoked.
const EventSignedOut = "SIGNED_OUT"

// Event is an auth change addressed to one user.
type Event struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
}

// RevocationStore remembers revoked session ids until their access tokens
// would have expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// Broker delivers events to subscribers of a user. Delivery is best effort:
// a subscriber that does not keep up loses events.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel of events for userID. The channel is closed
	// after cancel is called or ctx is done.
	Subscribe(ctx context.Context, userID string) (events <-chan Event, cancel func(), err error)
}
