package onetime

import (
	"context"
	"time"

	portalerrors "github.com/jrsteele09/assoc-portal/internal/errors"
)

// ErrNotFound is returned when no unused token matches a digest.
var ErrNotFound = portalerrors.ErrOneTimeTokenNotFound

// Type names what a one-time token may be redeemed for.
type Type string

const (
	TypeEmail     Type = "email"
	TypeMagicLink Type = "magiclink"
)

// ParseType accepts the token types carried by magic-link URLs.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeEmail, TypeMagicLink:
		return Type(s), true
	}
	return "", false
}

// OneTimeToken is the stored half of a magic link. Only the digest of the
// emailed token hash is kept.
type OneTimeToken struct {
	ID         string
	Email      string
	Digest     string
	Type       Type
	RedirectTo string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	UsedAt     *time.Time
}

type Repo interface {
	Insert(ctx context.Context, t *OneTimeToken) error
	// Consume marks the unused token with digest as used at usedAt and returns
	// it. It must be atomic: of two concurrent calls at most one succeeds.
	// A token that exists but was already used returns it with UsedAt set and ErrUsed.
	Consume(ctx context.Context, digest string, usedAt time.Time) (*OneTimeToken, error)
	// InvalidateForEmail marks every pending token for email as used.
	InvalidateForEmail(ctx context.Context, email string, at time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ErrUsed is returned by Repo.Consume for a token that was already redeemed.
var ErrUsed = portalerrors.ErrOneTimeTokenUsed
