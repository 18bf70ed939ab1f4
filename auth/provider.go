package auth

import (
	"context"

	"github.com/jrsteele09/assoc-portal/sessions"
	"github.com/jrsteele09/assoc-portal/users"
)

// Provider is the auth backend as seen by the web tier. Errors returned are
// the sentinels in auth_errors.go, possibly wrapped.
type Provider interface {
	// SendMagicLink emails a single-use sign-in link.
	SendMagicLink(ctx context.Context, params MagicLinkParameters) error

	// VerifyOTP redeems a magic-link token for a new session.
	VerifyOTP(ctx context.Context, params VerifyParameters) (*sessions.Session, error)

	// GetSession reads the session carried by a request's credentials. An
	// expired access token still yields its session so callers can refresh it.
	// No credentials at all returns (nil, nil).
	GetSession(ctx context.Context, accessToken, refreshToken string) (*sessions.Session, error)

	// RefreshSession rotates refreshToken and returns the new session.
	RefreshSession(ctx context.Context, refreshToken string) (*sessions.Session, error)

	// GetUser returns the user behind a live access token.
	GetUser(ctx context.Context, accessToken string) (*users.User, error)

	// GetProfile reads a profile. Users may read their own; admins may read any.
	GetProfile(ctx context.Context, accessToken, userID string) (*users.Profile, error)

	// ListProfiles pages through every profile. Admin only.
	ListProfiles(ctx context.Context, accessToken string, offset, limit int) ([]users.Profile, error)

	// SignOut revokes both tokens. Unknown tokens are not an error.
	SignOut(ctx context.Context, accessToken, refreshToken string) error
}

var _ Provider = (*Service)(nil)
