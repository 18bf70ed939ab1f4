package sessions_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/assoc-portal/sessions"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newValidator() *sessions.Validator {
	return sessions.NewValidator(sessions.WithNowTime(func() time.Time { return testNow }))
}

func sessionExpiringIn(d time.Duration) *sessions.Session {
	return &sessions.Session{
		UserID:    "user-1",
		Email:     "student@udel.edu",
		IssuedAt:  testNow.Unix(),
		ExpiresAt: testNow.Add(d).Unix(),
	}
}

func TestValidator_IsValid(t *testing.T) {
	v := newValidator()

	t.Run("nil session", func(t *testing.T) {
		require.False(t, v.IsValid(nil, sessions.NewMemoryWindow()))
	})

	t.Run("provider expiry dominates any window", func(t *testing.T) {
		for _, age := range []time.Duration{-1, 0, time.Minute, 3 * time.Hour, 5 * time.Hour} {
			w := sessions.NewMemoryWindow()
			if age >= 0 {
				w.SetStart(testNow.Add(-age))
			}
			require.False(t, v.IsValid(sessionExpiringIn(-time.Second), w))
		}
	})

	t.Run("expiry exactly now is expired", func(t *testing.T) {
		require.False(t, v.IsValid(sessionExpiringIn(0), sessions.NewMemoryWindow()))
	})

	t.Run("window dominates a live provider token", func(t *testing.T) {
		for _, age := range []time.Duration{4 * time.Hour, 4*time.Hour + time.Second, 24 * time.Hour} {
			w := sessions.NewMemoryWindow()
			w.SetStart(testNow.Add(-age))
			require.False(t, v.IsValid(sessionExpiringIn(20000*time.Second), w), "age %s", age)
		}
	})

	t.Run("first observation starts the window", func(t *testing.T) {
		w := sessions.NewMemoryWindow()
		s := sessionExpiringIn(time.Hour)

		require.True(t, v.IsValid(s, w))
		start, ok := w.Start()
		require.True(t, ok)
		require.Equal(t, testNow, start)
		require.True(t, v.IsValid(s, w))
	})

	t.Run("expired session does not start a window", func(t *testing.T) {
		w := sessions.NewMemoryWindow()
		require.False(t, v.IsValid(sessionExpiringIn(-time.Minute), w))
		_, ok := w.Start()
		require.False(t, ok)
	})

	t.Run("session without provider expiry", func(t *testing.T) {
		w := sessions.NewMemoryWindow()
		w.SetStart(testNow.Add(-time.Hour))
		require.True(t, v.IsValid(&sessions.Session{UserID: "user-1"}, w))
	})
}

func TestValidator_TimeRemaining(t *testing.T) {
	v := newValidator()

	t.Run("provider expiry is the tighter bound", func(t *testing.T) {
		w := sessions.NewMemoryWindow()
		s := sessionExpiringIn(3600 * time.Second)

		require.True(t, v.IsValid(s, w))
		start, _ := w.Start()
		require.Equal(t, testNow, start)
		require.Equal(t, 3600*time.Second, v.TimeRemaining(s, w))
	})

	t.Run("window is the tighter bound", func(t *testing.T) {
		w := sessions.NewMemoryWindow()
		w.SetStart(testNow.Add(-3*time.Hour - 30*time.Minute))
		require.Equal(t, 30*time.Minute, v.TimeRemaining(sessionExpiringIn(2*time.Hour), w))
	})

	t.Run("no provider expiry uses the window", func(t *testing.T) {
		w := sessions.NewMemoryWindow()
		w.SetStart(testNow.Add(-time.Hour))
		require.Equal(t, 3*time.Hour, v.TimeRemaining(&sessions.Session{}, w))
	})

	t.Run("no window recorded counts a full window without starting one", func(t *testing.T) {
		w := sessions.NewMemoryWindow()
		require.Equal(t, 4*time.Hour, v.TimeRemaining(sessionExpiringIn(10*time.Hour), w))
		_, ok := w.Start()
		require.False(t, ok)
	})

	t.Run("never negative", func(t *testing.T) {
		require.Equal(t, time.Duration(0), v.TimeRemaining(sessionExpiringIn(-time.Hour), sessions.NewMemoryWindow()))
		require.Equal(t, time.Duration(0), v.TimeRemaining(nil, sessions.NewMemoryWindow()))
	})
}

func TestValidator_ShouldRefresh(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name      string
		remaining time.Duration
		want      bool
	}{
		{name: "expired", remaining: -time.Second, want: false},
		{name: "exactly zero", remaining: 0, want: false},
		{name: "one second", remaining: time.Second, want: true},
		{name: "just under five minutes", remaining: 5*time.Minute - time.Second, want: true},
		{name: "exactly five minutes", remaining: 5 * time.Minute, want: false},
		{name: "an hour", remaining: time.Hour, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := sessions.NewMemoryWindow()
			w.SetStart(testNow)
			require.Equal(t, tt.want, v.ShouldRefresh(sessionExpiringIn(tt.remaining), w))
		})
	}

	t.Run("window ending soon", func(t *testing.T) {
		w := sessions.NewMemoryWindow()
		w.SetStart(testNow.Add(-4*time.Hour + time.Minute))
		require.True(t, v.ShouldRefresh(sessionExpiringIn(time.Hour), w))
	})
}

func TestValidator_WindowOutlivesLongToken(t *testing.T) {
	v := newValidator()
	w := sessions.NewMemoryWindow()
	w.SetStart(testNow.Add(-4*time.Hour - time.Second))

	require.False(t, v.IsValid(sessionExpiringIn(20000*time.Second), w))
}
