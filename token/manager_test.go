package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/assoc-portal/token"
	"github.com/jrsteele09/assoc-portal/token/jwt"
	"github.com/jrsteele09/assoc-portal/token/keys"
	"github.com/jrsteele09/assoc-portal/token/refresh"
	refreshrepofake "github.com/jrsteele09/assoc-portal/token/refresh/repofake"
	"github.com/jrsteele09/assoc-portal/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, now *time.Time) *token.Manager {
	t.Helper()
	signer, err := keys.DeriveAccessTokenSigner("a-test-secret-of-reasonable-length")
	require.NoError(t, err)
	return token.New(refreshrepofake.NewFakeRefreshTokenRepo(), signer, "http://localhost:8080",
		token.WithTokenExpiry(time.Hour, 24*time.Hour),
		token.WithNowFunc(func() time.Time { return *now }),
	)
}

func TestManager_IssueAndInspect(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	m := newTestManager(t, &now)
	user := &users.User{ID: "user-1", Email: "jdoe@udel.edu"}

	s, err := m.IssueSession(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, "user-1", s.UserID)
	require.Equal(t, "jdoe@udel.edu", s.Email)
	require.Equal(t, token.TokenTypeBearer, s.TokenType)
	require.Equal(t, now.Add(time.Hour).Unix(), s.ExpiresAt)
	require.NotEmpty(t, s.RefreshToken)

	claims, err := m.Inspect(s.AccessToken, false)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "jdoe@udel.edu", claims.Email)

	now = now.Add(2 * time.Hour)
	_, err = m.Inspect(s.AccessToken, false)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)

	claims, err = m.Inspect(s.AccessToken, true)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
	require.Equal(t, "user-1", claims.Subject)
}

func TestManager_RotateAndResume(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	m := newTestManager(t, &now)
	user := &users.User{ID: "user-1", Email: "jdoe@udel.edu"}

	s, err := m.IssueSession(ctx, user)
	require.NoError(t, err)

	rt, err := m.RotateRefreshToken(ctx, s.RefreshToken)
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)
	next, err := m.ResumeSession(user, rt)
	require.NoError(t, err)
	require.Equal(t, rt.Token, next.RefreshToken)
	require.Equal(t, now.Add(time.Hour).Unix(), next.ExpiresAt)

	_, err = m.RotateRefreshToken(ctx, s.RefreshToken)
	require.ErrorIs(t, err, refresh.ErrInvalid)

	_, err = m.ResumeSession(&users.User{ID: "someone-else"}, rt)
	require.Error(t, err)
}

func TestManager_Revoke(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	m := newTestManager(t, &now)

	s, err := m.IssueSession(ctx, &users.User{ID: "user-1", Email: "jdoe@udel.edu"})
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, s.AccessToken, s.RefreshToken))

	_, err = m.Inspect(s.AccessToken, false)
	require.ErrorIs(t, err, jwt.ErrInvalidToken)

	_, err = m.RotateRefreshToken(ctx, s.RefreshToken)
	require.ErrorIs(t, err, refresh.ErrInvalid)

	// Revoking garbage or nothing is not an error.
	require.NoError(t, m.Revoke(ctx, "not-a-jwt", ""))
	require.NoError(t, m.Revoke(ctx, "", ""))
}

func TestMemoryRevocationList_Prune(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	list := token.NewMemoryRevocationList()
	require.NoError(t, list.Add(ctx, "a", now.Add(-time.Minute)))
	require.NoError(t, list.Add(ctx, "b", now.Add(time.Minute)))

	list.Prune(now)
	require.False(t, list.IsRevoked("a"))
	require.True(t, list.IsRevoked("b"))
}

func TestRedisRevocationList(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	list := token.NewRedisRevocationList(client, func() time.Time { return now })

	require.NoError(t, list.Add(ctx, "live", now.Add(time.Minute)))
	require.NoError(t, list.Add(ctx, "gone", now.Add(-time.Minute)))
	require.True(t, list.IsRevoked("live"))
	require.False(t, list.IsRevoked("gone"))

	mr.FastForward(2 * time.Minute)
	require.False(t, list.IsRevoked("live"))
}

func TestRedisRevocationList_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	list := token.NewRedisRevocationList(client, nil)

	require.NoError(t, list.Add(context.Background(), "jti", time.Now().Add(time.Hour)))
	mr.Close()
	require.False(t, list.IsRevoked("jti"))
}

// Two managers over one Redis see each other's sign outs.
func TestManager_SharedRevocation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	signer, err := keys.DeriveAccessTokenSigner("a-test-secret-of-reasonable-length")
	require.NoError(t, err)
	newManager := func() *token.Manager {
		return token.New(refreshrepofake.NewFakeRefreshTokenRepo(), signer, "http://localhost:8080",
			token.WithRevocationList(token.NewRedisRevocationList(client, nil)))
	}
	a, b := newManager(), newManager()

	s, err := a.IssueSession(ctx, &users.User{ID: "user-1", Email: "jdoe@udel.edu"})
	require.NoError(t, err)
	_, err = b.Inspect(s.AccessToken, false)
	require.NoError(t, err)

	require.NoError(t, a.Revoke(ctx, s.AccessToken, ""))
	_, err = b.Inspect(s.AccessToken, false)
	require.ErrorIs(t, err, jwt.ErrInvalidToken)
}
