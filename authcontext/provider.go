package authcontext

import (
	"context"

	"github.com/jrsteele09/assoc-portal/sessions"
)

// Event is a provider session-change notification.
type Event string

const (
	EventInitialSession Event = "INITIAL_SESSION"
	EventSignedIn       Event = "SIGNED_IN"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
	EventSignedOut      Event = "SIGNED_OUT"
)

// AuthEvent carries the session as it stands after the event. Session is nil
// for EventSignedOut.
type AuthEvent struct {
	Event   Event
	Session *sessions.Session
}

// Provider is the client side view of the auth provider.
type Provider interface {
	GetSession(ctx context.Context) (*sessions.Session, error)
	RefreshSession(ctx context.Context) (*sessions.Session, error)
	// SignOut invalidates the credential held by this client.
	SignOut(ctx context.Context) error
	// Subscribe delivers events to fn until unsubscribe is called.
	Subscribe(fn func(AuthEvent)) (unsubscribe func())
}

// AdminStore reads the authoritative admin attribute of a user.
type AdminStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Navigator moves the user between pages.
type Navigator interface {
	// Navigate is a client side route change.
	Navigate(path string)
	// Reload is a full page load of path, dropping all in-memory state.
	Reload(path string)
}
