package sessions

import "time"

// Session is a provider-issued credential for one principal.
// Two clocks govern it: the provider's ExpiresAt (seconds since epoch) and the
// client's local window tracked through a WindowStore.
type Session struct {
	UserID       string `json:"user_id"`       // Subject identity
	Email        string `json:"email"`         // Subject email, checked by the domain policy
	AccessToken  string `json:"access_token"`  // Signed JWT
	RefreshToken string `json:"refresh_token"` // Opaque, single use
	TokenType    string `json:"token_type"`    // Always "bearer"
	IssuedAt     int64  `json:"issued_at"`     // Provider controlled, seconds since epoch
	ExpiresAt    int64  `json:"expires_at"`    // Provider controlled, seconds since epoch; 0 when absent
}

// HasExpiry reports whether the provider set an expiry on the session.
func (s *Session) HasExpiry() bool {
	return s != nil && s.ExpiresAt > 0
}

// Expiry returns the provider expiry as a time.
func (s *Session) Expiry() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// ProviderExpired reports whether now is at or past the provider expiry.
// A session without an expiry never expires on the provider clock.
func (s *Session) ProviderExpired(now time.Time) bool {
	if !s.HasExpiry() {
		return false
	}
	return !now.Before(s.Expiry())
}
