package auth

import (
	"strings"

	"github.com/jrsteele09/assoc-portal/token/onetime"
	"github.com/jrsteele09/assoc-portal/users"
)

// MagicLinkParameters is a request to email a sign-in link.
type MagicLinkParameters struct {
	// Email receives the link. Surrounding whitespace is ignored.
	Email string `json:"email"`

	// RedirectTo is where the user wants to land after signing in. Either a
	// path or an absolute URL on the portal's own origin; anything else is dropped.
	RedirectTo string `json:"redirect_to,omitempty"`
}

// Validate normalises the email and checks its shape.
func (p *MagicLinkParameters) Validate() error {
	p.Email = users.NormaliseEmail(p.Email)
	if !validEmail(p.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// VerifyParameters redeems the one-time token from a magic link.
type VerifyParameters struct {
	TokenHash string `json:"token_hash"`
	Type      string `json:"type"`
}

// Validate checks both fields are present and returns the parsed type.
func (p *VerifyParameters) Validate() (onetime.Type, error) {
	if strings.TrimSpace(p.TokenHash) == "" || strings.TrimSpace(p.Type) == "" {
		return "", ErrVerifyParams
	}
	t, ok := onetime.ParseType(p.Type)
	if !ok {
		return "", ErrVerifyParams
	}
	return t, nil
}
