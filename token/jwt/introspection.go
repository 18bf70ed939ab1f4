package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/assoc-portal/token/keys"
)

var (
	ErrEmptyToken   = errors.New("empty token")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the verified content of an access token
type Claims struct {
	ID        string    // jti
	Subject   string    // user id
	Email     string    // user email
	IssuedAt  time.Time // iat
	ExpiresAt time.Time // exp
}

// Expired reports whether the token is past its exp claim.
func (c *Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// RevokedChecker is an interface for checking if a token has been revoked
type RevokedChecker interface {
	IsRevoked(jti string) bool
}

// Inspector verifies access tokens
type Inspector struct {
	issuer         string
	revokedChecker RevokedChecker
	nowTime        func() time.Time
}

// NewInspector creates a new JWT inspector
func NewInspector(issuer string, revokedChecker RevokedChecker, nowTime func() time.Time) *Inspector {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &Inspector{
		issuer:         issuer,
		revokedChecker: revokedChecker,
		nowTime:        nowTime,
	}
}

// Inspect verifies the signature, issuer and audience of rawToken.
// When allowExpired is set an expired token still returns its claims together
// with ErrTokenExpired, so callers can tell "expired" from "forged".
func (i *Inspector) Inspect(rawToken string, signer keys.Signer, allowExpired bool) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrEmptyToken
	}

	parser := jwtlib.NewParser(
		jwtlib.WithoutClaimsValidation(),
		jwtlib.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
	)
	token, err := parser.ParseWithClaims(rawToken, jwtlib.MapClaims{}, signer.GetVerificationKey)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapClaims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: error extracting claims from token", ErrInvalidToken)
	}

	iss, _ := mapClaims["iss"].(string)
	aud, _ := mapClaims["aud"].(string)
	if iss != i.issuer || aud != Audience {
		return nil, fmt.Errorf("%w: unexpected issuer or audience", ErrInvalidToken)
	}

	sub, _ := mapClaims["sub"].(string)
	email, _ := mapClaims["email"].(string)
	jti, _ := mapClaims["jti"].(string)
	iat, _ := mapClaims["iat"].(float64)
	exp, ok := mapClaims["exp"].(float64)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: token missing sub or exp claim", ErrInvalidToken)
	}

	if jti != "" && i.revokedChecker != nil && i.revokedChecker.IsRevoked(jti) {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}

	claims := &Claims{
		ID:        jti,
		Subject:   sub,
		Email:     email,
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
	}

	if claims.Expired(i.nowTime()) {
		if allowExpired {
			return claims, ErrTokenExpired
		}
		return nil, ErrTokenExpired
	}
	return claims, nil
}
