package onetime_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/assoc-portal/token/onetime"
	onetimerepofake "github.com/jrsteele09/assoc-portal/token/onetime/repofake"
	"github.com/stretchr/testify/require"
)

func newManager(now *time.Time) *onetime.Manager {
	return onetime.NewManager(onetimerepofake.NewFakeOneTimeRepo(), 15*time.Minute, func() time.Time { return *now })
}

func TestManager_RedeemOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	m := newManager(&now)

	tokenHash, err := m.Issue(ctx, "student@udel.edu", onetime.TypeEmail, "/opportunities/42")
	require.NoError(t, err)
	require.Len(t, tokenHash, 56)

	redeemed, err := m.Redeem(ctx, tokenHash, onetime.TypeEmail)
	require.NoError(t, err)
	require.Equal(t, "student@udel.edu", redeemed.Email)
	require.Equal(t, "/opportunities/42", redeemed.RedirectTo)

	_, err = m.Redeem(ctx, tokenHash, onetime.TypeEmail)
	require.ErrorIs(t, err, onetime.ErrRedeemed)
}

func TestManager_RedeemFailures(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	m := newManager(&now)

	t.Run("unknown", func(t *testing.T) {
		_, err := m.Redeem(ctx, "does-not-exist", onetime.TypeEmail)
		require.ErrorIs(t, err, onetime.ErrInvalid)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := m.Redeem(ctx, "", onetime.TypeEmail)
		require.ErrorIs(t, err, onetime.ErrInvalid)
	})

	t.Run("expired is burnt", func(t *testing.T) {
		tokenHash, err := m.Issue(ctx, "late@udel.edu", onetime.TypeEmail, "")
		require.NoError(t, err)

		now = now.Add(15 * time.Minute)
		_, err = m.Redeem(ctx, tokenHash, onetime.TypeEmail)
		require.ErrorIs(t, err, onetime.ErrExpired)

		_, err = m.Redeem(ctx, tokenHash, onetime.TypeEmail)
		require.ErrorIs(t, err, onetime.ErrRedeemed)
	})

	t.Run("newer link invalidates older", func(t *testing.T) {
		older, err := m.Issue(ctx, "twice@udel.edu", onetime.TypeEmail, "")
		require.NoError(t, err)
		newer, err := m.Issue(ctx, "twice@udel.edu", onetime.TypeMagicLink, "")
		require.NoError(t, err)

		_, err = m.Redeem(ctx, older, onetime.TypeEmail)
		require.ErrorIs(t, err, onetime.ErrRedeemed)

		_, err = m.Redeem(ctx, newer, onetime.TypeEmail)
		require.NoError(t, err)
	})
}

func TestManager_ConcurrentRedeem(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	m := newManager(&now)

	tokenHash, err := m.Issue(ctx, "race@udel.edu", onetime.TypeEmail, "")
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Redeem(ctx, tokenHash, onetime.TypeEmail); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestParseType(t *testing.T) {
	got, ok := onetime.ParseType("email")
	require.True(t, ok)
	require.Equal(t, onetime.TypeEmail, got)

	_, ok = onetime.ParseType("recovery")
	require.False(t, ok)
}
