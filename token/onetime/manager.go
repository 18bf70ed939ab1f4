package onetime

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalid   = errors.New("one-time token invalid")
	ErrExpired   = errors.New("one-time token expired")
	ErrRedeemed  = errors.New("one-time token already redeemed")
	ErrWrongType = errors.New("one-time token type mismatch")
)

const tokenBytes = 28

// Manager issues and redeems single-use magic-link tokens
type Manager struct {
	repo    Repo
	ttl     time.Duration
	nowTime func() time.Time
}

func NewManager(repo Repo, ttl time.Duration, nowTime func() time.Time) *Manager {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &Manager{
		repo:    repo,
		ttl:     ttl,
		nowTime: nowTime,
	}
}

// Issue creates a token for email and returns the token hash to embed in the
// magic link. Earlier pending tokens for the same email stop working.
func (m *Manager) Issue(ctx context.Context, email string, t Type, redirectTo string) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	tokenHash := hex.EncodeToString(b)

	now := m.nowTime()
	if err := m.repo.InvalidateForEmail(ctx, email, now); err != nil {
		return "", fmt.Errorf("[onetime Issue] failed to invalidate previous tokens: %w", err)
	}

	if err := m.repo.Insert(ctx, &OneTimeToken{
		ID:         uuid.New().String(),
		Email:      email,
		Digest:     Digest(tokenHash),
		Type:       t,
		RedirectTo: redirectTo,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}); err != nil {
		return "", fmt.Errorf("[onetime Issue] failed to store token: %w", err)
	}
	return tokenHash, nil
}

// Redeem consumes tokenHash. It succeeds at most once per token; expiry is
// checked after consumption so an expired link is burnt as well.
func (m *Manager) Redeem(ctx context.Context, tokenHash string, t Type) (*OneTimeToken, error) {
	if tokenHash == "" {
		return nil, ErrInvalid
	}
	now := m.nowTime()
	stored, err := m.repo.Consume(ctx, Digest(tokenHash), now)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, ErrInvalid
	case errors.Is(err, ErrUsed):
		return nil, ErrRedeemed
	case err != nil:
		return nil, fmt.Errorf("[onetime Redeem] failed to consume token: %w", err)
	}

	if !now.Before(stored.ExpiresAt) {
		return nil, ErrExpired
	}
	if !typesCompatible(stored.Type, t) {
		return nil, ErrWrongType
	}
	return stored, nil
}

// DeleteExpired removes tokens whose expiry has passed.
func (m *Manager) DeleteExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.nowTime())
}

// Digest is the stored form of a token hash.
func Digest(tokenHash string) string {
	sum := sha256.Sum256([]byte(tokenHash))
	return hex.EncodeToString(sum[:])
}

// email and magiclink links are interchangeable for sign-in.
func typesCompatible(stored, requested Type) bool {
	if stored == requested {
		return true
	}
	signIn := func(t Type) bool { return t == TypeEmail || t == TypeMagicLink }
	return signIn(stored) && signIn(requested)
}
