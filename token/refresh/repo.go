package refresh

import (
	"context"
	"time"

	portalerrors "github.com/jrsteele09/assoc-portal/internal/errors"
)

// ErrNotFound is returned when a refresh token is unknown or already consumed.
var ErrNotFound = portalerrors.ErrRefreshTokenNotFound

// StoredRefreshToken represents the server-side storage of refresh token metadata.
// The client only receives the Token field (a random string). All other fields are
// server-side metadata used for validation and rotation.
type StoredRefreshToken struct {
	Token     string    // The actual random token string (sent to client)
	UserID    string    // Server-side metadata
	SessionID string    // Stable across rotations of one sign-in
	Iat       time.Time // Server-side metadata (issued at time)
}

// Repo manages server-side storage of refresh token metadata.
type Repo interface {
	Upsert(ctx context.Context, refreshToken *StoredRefreshToken) error
	// Consume atomically returns and deletes a token so it can be used once.
	Consume(ctx context.Context, token string) (*StoredRefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteBySessionID(ctx context.Context, sessionID string) error
	DeleteIssuedBefore(ctx context.Context, before time.Time) (int64, error)
}
