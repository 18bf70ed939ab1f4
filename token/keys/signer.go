package keys

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is an interface for signing and verifying JWT tokens
type Signer interface {
	// Sign creates a signed JWT token from claims
	Sign(claims jwt.MapClaims) (string, error)

	// GetVerificationKey is a jwt.Keyfunc returning the key used to verify a token
	GetVerificationKey(token *jwt.Token) (any, error)

	// GetSigningMethod returns the JWT signing method used
	GetSigningMethod() jwt.SigningMethod
}

// HMACSigner implements Signer with HS256 and a derived symmetric key
type HMACSigner struct {
	keyID string
	key   []byte
}

var _ Signer = (*HMACSigner)(nil)

// NewHMACSigner creates a signer for the given key. The key id is written to
// the "kid" header so keys can be rotated later.
func NewHMACSigner(keyID string, key []byte) *HMACSigner {
	return &HMACSigner{
		keyID: keyID,
		key:   key,
	}
}

func (s *HMACSigner) Sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.GetSigningMethod(), claims)
	token.Header["kid"] = s.keyID

	signedToken, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with symmetric key: %w", err)
	}
	return signedToken, nil
}

func (s *HMACSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	if kid, _ := token.Header["kid"].(string); kid != s.keyID {
		return nil, fmt.Errorf("unknown key id: %q", kid)
	}
	return s.key, nil
}

func (s *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}
