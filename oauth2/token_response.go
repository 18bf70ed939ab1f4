package oauth2

import "github.com/jrsteele09/assoc-portal/sessions"

// TokenResponse is the body returned by the verify and token endpoints.
// The first five fields follow RFC 6749 section 5.1 so a stock OAuth2 client
// can run the refresh grant; the rest carry the session's identity.
type TokenResponse struct {
	// AccessToken is the signed session JWT.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// TokenType is always "bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token at issue time.
	ExpiresIn int64 `json:"expires_in"`

	// ExpiresAt is the access token expiry in seconds since the epoch.
	// This is the provider clock; the client's own session window is separate.
	ExpiresAt int64 `json:"expires_at"`

	// RefreshToken is opaque and single use. It rotates on every refresh.
	RefreshToken string `json:"refresh_token"`

	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// NewTokenResponse builds the wire form of s.
func NewTokenResponse(s *sessions.Session) TokenResponse {
	return TokenResponse{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresAt - s.IssuedAt,
		ExpiresAt:    s.ExpiresAt,
		RefreshToken: s.RefreshToken,
		UserID:       s.UserID,
		Email:        s.Email,
	}
}

// Session converts the response back into a session.
func (r TokenResponse) Session() *sessions.Session {
	return &sessions.Session{
		UserID:       r.UserID,
		Email:        r.Email,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		IssuedAt:     r.ExpiresAt - r.ExpiresIn,
		ExpiresAt:    r.ExpiresAt,
	}
}
