package users

import (
	"strings"
	"time"

	portalerrors "github.com/jrsteele09/assoc-portal/internal/errors"
)

// ErrUserNotFound is returned by repos when no user matches.
var ErrUserNotFound = portalerrors.ErrUserNotFound

// User is a principal known to the auth provider. The IsAdmin attribute is the
// authoritative admin flag; clients only ever cache it.
type User struct {
	ID         string    `json:"id"`                     // Unique identifier (UUID)
	Email      string    `json:"email"`                  // Sign-in address
	IsAdmin    bool      `json:"is_admin"`               // Elevated privileges for the admin tools
	Blocked    bool      `json:"blocked,omitempty"`      // Blocked users cannot redeem magic links
	CreatedAt  time.Time `json:"created_at"`             // First successful sign-in
	LastSignIn time.Time `json:"last_sign_in,omitempty"` // Most recent magic-link redemption
}

// Profile is the public projection of a user returned by the profile API.
type Profile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, IsAdmin: u.IsAdmin}
}

// NormaliseEmail trims surrounding whitespace. Case is preserved because the
// domain policy is case-sensitive.
func NormaliseEmail(email string) string {
	return strings.TrimSpace(email)
}
