package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/assoc-portal/sessions"
	"github.com/jrsteele09/assoc-portal/token/jwt"
	"github.com/jrsteele09/assoc-portal/token/keys"
	"github.com/jrsteele09/assoc-portal/token/refresh"
	"github.com/jrsteele09/assoc-portal/users"
)

// TokenTypeBearer is the token_type of every session.
const TokenTypeBearer = "bearer"

// Manager turns users into sessions: a signed access token paired with a
// rotating refresh token.
type Manager struct {
	signer             keys.Signer
	creator            *jwt.Creator
	inspector          *jwt.Inspector
	refresh            *refresh.Manager
	revoked            RevocationList
	issuer             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	refreshTokenLength int
	nowFunc            func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry time.Duration, refreshTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
		m.refreshTokenExpiry = refreshTokenExpiry
	}
}

func WithRefreshTokenLength(length int) ManagerOption {
	return func(m *Manager) {
		m.refreshTokenLength = length
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithRevocationList replaces the in-memory revocation list.
func WithRevocationList(list RevocationList) ManagerOption {
	return func(m *Manager) {
		m.revoked = list
	}
}

func New(refreshRepo refresh.Repo, signer keys.Signer, issuer string, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:  signer,
		issuer:  issuer,
		revoked: NewMemoryRevocationList(),
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = time.Hour
	}
	if m.refreshTokenExpiry == 0 {
		m.refreshTokenExpiry = 7 * 24 * time.Hour
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}

	m.creator = jwt.NewCreator(issuer, m.accessTokenExpiry, m.nowFunc)
	m.inspector = jwt.NewInspector(issuer, m.revoked, m.nowFunc)
	m.refresh = refresh.NewManager(refreshRepo, m.refreshTokenLength, m.refreshTokenExpiry, m.nowFunc)
	return m
}

// IssueSession starts a new session for user.
func (m *Manager) IssueSession(ctx context.Context, user *users.User) (*sessions.Session, error) {
	rt, err := m.refresh.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("[token IssueSession] %w", err)
	}
	return m.sessionFor(user, rt.Token)
}

// RotateRefreshToken consumes refreshToken and returns its successor. The
// caller resolves the user and calls ResumeSession.
func (m *Manager) RotateRefreshToken(ctx context.Context, refreshToken string) (*refresh.StoredRefreshToken, error) {
	return m.refresh.Rotate(ctx, refreshToken)
}

// ResumeSession issues a new access token for user bound to an already rotated refresh token.
func (m *Manager) ResumeSession(user *users.User, rt *refresh.StoredRefreshToken) (*sessions.Session, error) {
	if rt.UserID != user.ID {
		return nil, errors.New("[token ResumeSession] refresh token belongs to another user")
	}
	return m.sessionFor(user, rt.Token)
}

// Inspect verifies an access token. See jwt.Inspector.Inspect for allowExpired.
func (m *Manager) Inspect(accessToken string, allowExpired bool) (*jwt.Claims, error) {
	return m.inspector.Inspect(accessToken, m.signer, allowExpired)
}

// Revoke blocks the access token until its natural expiry and deletes the
// refresh token family. Either token may be empty.
func (m *Manager) Revoke(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		// A forged token yields no claims and has nothing to revoke.
		if claims, _ := m.inspector.Inspect(accessToken, m.signer, true); claims != nil && claims.ID != "" {
			if err := m.revoked.Add(ctx, claims.ID, claims.ExpiresAt); err != nil {
				return fmt.Errorf("[token Revoke] failed to add revoked token: %w", err)
			}
		}
	}
	if err := m.refresh.Revoke(ctx, refreshToken); err != nil {
		return fmt.Errorf("[token Revoke] %w", err)
	}
	return nil
}

// Cleanup drops expired revocations and refresh tokens.
func (m *Manager) Cleanup(ctx context.Context) (int64, error) {
	m.revoked.Prune(m.nowFunc())
	return m.refresh.DeleteExpired(ctx)
}

func (m *Manager) sessionFor(user *users.User, refreshToken string) (*sessions.Session, error) {
	accessToken, issuedAt, expiresAt, err := m.creator.CreateAccessToken(user, m.signer)
	if err != nil {
		return nil, fmt.Errorf("[token sessionFor] %w", err)
	}
	return &sessions.Session{
		UserID:       user.ID,
		Email:        user.Email,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		IssuedAt:     issuedAt.Unix(),
		ExpiresAt:    expiresAt.Unix(),
	}, nil
}
