package keys_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/assoc-portal/token/keys"
	"github.com/stretchr/testify/require"
)

func TestDeriveAccessTokenSigner(t *testing.T) {
	t.Run("short secret", func(t *testing.T) {
		_, err := keys.DeriveAccessTokenSigner("short")
		require.ErrorIs(t, err, keys.ErrSecretTooShort)
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := keys.DeriveAccessTokenSigner("0123456789abcdef0123")
		require.NoError(t, err)
		b, err := keys.DeriveAccessTokenSigner("0123456789abcdef0123")
		require.NoError(t, err)

		signed, err := a.Sign(jwt.MapClaims{"sub": "user-1"})
		require.NoError(t, err)

		parsed, err := jwt.Parse(signed, b.GetVerificationKey)
		require.NoError(t, err)
		require.True(t, parsed.Valid)
	})

	t.Run("different secrets do not verify", func(t *testing.T) {
		a, err := keys.DeriveAccessTokenSigner("0123456789abcdef0123")
		require.NoError(t, err)
		b, err := keys.DeriveAccessTokenSigner("fedcba9876543210fedc")
		require.NoError(t, err)

		signed, err := a.Sign(jwt.MapClaims{"sub": "user-1"})
		require.NoError(t, err)

		_, err = jwt.Parse(signed, b.GetVerificationKey)
		require.Error(t, err)
	})
}

func TestGenerateSecret(t *testing.T) {
	s, err := keys.GenerateSecret()
	require.NoError(t, err)
	require.Len(t, s, 64)

	_, err = keys.DeriveAccessTokenSigner(s)
	require.NoError(t, err)
}
