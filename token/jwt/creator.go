package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/assoc-portal/token/keys"
	"github.com/jrsteele09/assoc-portal/users"
)

const (
	// Audience is the audience claim of every access token the portal issues.
	Audience = "authenticated"
)

// Creator handles access token creation
type Creator struct {
	issuer  string
	expiry  time.Duration
	nowTime func() time.Time
}

// NewCreator creates a new JWT creator
func NewCreator(issuer string, expiry time.Duration, nowTime func() time.Time) *Creator {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &Creator{
		issuer:  issuer,
		expiry:  expiry,
		nowTime: nowTime,
	}
}

// CreateAccessToken creates a signed access token for the user. The returned
// times are the iat/exp claims written into the token.
func (c *Creator) CreateAccessToken(user *users.User, signer keys.Signer) (token string, issuedAt, expiresAt time.Time, err error) {
	issuedAt = c.nowTime().Truncate(time.Second)
	expiresAt = issuedAt.Add(c.expiry)

	claims := jwtlib.MapClaims{
		"iss":   c.issuer,            // The issuer of the token
		"aud":   Audience,            // The audience for which the token is intended
		"sub":   user.ID,             // The user the session belongs to
		"email": user.Email,          // Checked against the domain policy by every caller
		"role":  Audience,            // Mirrors the audience; admin rights are looked up, never embedded
		"iat":   issuedAt.Unix(),     // Issued At: the time at which the token was issued
		"exp":   expiresAt.Unix(),    // Expiry: when the token will expire
		"jti":   uuid.New().String(), // Unique token ID for revocation
	}

	signed, err := signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, issuedAt, expiresAt, nil
}
