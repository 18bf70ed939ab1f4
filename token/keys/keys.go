package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	accessTokenInfo = "assoc-portal access token v1"
	keyLength       = 32
	minSecretLength = 16
)

// ErrSecretTooShort is returned when the master secret cannot safely seed a key.
var ErrSecretTooShort = errors.New("jwt secret must be at least 16 bytes")

// DeriveAccessTokenSigner derives the HS256 access-token key from the master
// secret with HKDF-SHA256. The key id is a short fingerprint of the derived key.
func DeriveAccessTokenSigner(secret string) (*HMACSigner, error) {
	if len(secret) < minSecretLength {
		return nil, ErrSecretTooShort
	}
	key, err := derive([]byte(secret), accessTokenInfo)
	if err != nil {
		return nil, err
	}
	return NewHMACSigner(fingerprint(key), key), nil
}

// GenerateSecret returns a random hex secret suitable for JWT_SECRET.
func GenerateSecret() (string, error) {
	b := make([]byte, keyLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func derive(secret []byte, info string) ([]byte, error) {
	key := make([]byte, keyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

func fingerprint(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:4])
}
