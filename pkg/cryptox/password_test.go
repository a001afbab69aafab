package cryptox_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/pkg/cryptox"
)

func TestHashAndVerifyPassword(t *testing.T) {
	encoded, err := cryptox.HashPassword("Correct Horse Battery 1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

	require.NoError(t, cryptox.VerifyPassword("Correct Horse Battery 1", encoded))
	require.ErrorIs(t,
		cryptox.VerifyPassword("wrong horse", encoded),
		cryptox.ErrPasswordMismatch)
}

func TestHashPasswordSaltsEveryCall(t *testing.T) {
	a, err := cryptox.HashPassword("same input")
	require.NoError(t, err)
	b, err := cryptox.HashPassword("same input")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.NoError(t, cryptox.VerifyPassword("same input", a))
	require.NoError(t, cryptox.VerifyPassword("same input", b))
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=1$not-base64!$aGFzaA",
	} {
		require.Error(t, cryptox.VerifyPassword("anything", encoded), "hash %q", encoded)
	}
}

func TestGenerateToken(t *testing.T) {
	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43) // 32 bytes base64url, unpadded

	other, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}

func TestFingerprintToken(t *testing.T) {
	fp := cryptox.FingerprintToken("opaque-token")
	require.Equal(t, fp, cryptox.FingerprintToken("opaque-token"))
	require.NotEqual(t, fp, cryptox.FingerprintToken("other-token"))
	require.NotContains(t, fp, "opaque")
}
