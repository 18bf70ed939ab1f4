package refresh

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalid = errors.New("invalid refresh token")
	ErrExpired = errors.New("refresh token expired")
)

// Manager handles refresh token creation, rotation and revocation
type Manager struct {
	repo        Repo
	tokenLength int
	expiry      time.Duration
	nowTime     func() time.Time
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, tokenLength int, expiry time.Duration, nowTime func() time.Time) *Manager {
	if nowTime == nil {
		nowTime = time.Now
	}
	if tokenLength <= 0 {
		tokenLength = 32
	}
	return &Manager{
		repo:        repo,
		tokenLength: tokenLength,
		expiry:      expiry,
		nowTime:     nowTime,
	}
}

// Create starts a new refresh token family for a fresh sign-in.
func (m *Manager) Create(ctx context.Context, userID string) (*StoredRefreshToken, error) {
	return m.issue(ctx, userID, uuid.New().String())
}

// Rotate consumes token and issues its successor in the same family.
// A token can be rotated once; a second attempt returns ErrInvalid.
func (m *Manager) Rotate(ctx context.Context, token string) (*StoredRefreshToken, error) {
	if token == "" {
		return nil, ErrInvalid
	}
	stored, err := m.repo.Consume(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("[refresh Rotate] failed to consume refresh token: %w", err)
	}
	if m.IsExpired(stored) {
		return nil, ErrExpired
	}
	return m.issue(ctx, stored.UserID, stored.SessionID)
}

// Revoke deletes the token's whole family. Unknown tokens are not an error.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	stored, err := m.repo.Consume(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("[refresh Revoke] failed to consume refresh token: %w", err)
	}
	if err := m.repo.DeleteBySessionID(ctx, stored.SessionID); err != nil {
		return fmt.Errorf("[refresh Revoke] failed to delete session tokens: %w", err)
	}
	return nil
}

// IsExpired checks if a refresh token has outlived the configured expiry
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.nowTime().Sub(rt.Iat) > m.expiry
}

// DeleteExpired removes tokens older than the configured expiry.
func (m *Manager) DeleteExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteIssuedBefore(ctx, m.nowTime().Add(-m.expiry))
}

func (m *Manager) issue(ctx context.Context, userID, sessionID string) (*StoredRefreshToken, error) {
	tokenBytes := make([]byte, m.tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rt := &StoredRefreshToken{
		Token:     hex.EncodeToString(tokenBytes),
		UserID:    userID,
		SessionID: sessionID,
		Iat:       m.nowTime(),
	}
	if err := m.repo.Upsert(ctx, rt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return rt, nil
}
