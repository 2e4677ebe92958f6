package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	require.True(t, VerifyPassword(hash, "correct horse battery staple"))
	require.False(t, VerifyPassword(hash, "wrong password"))
	require.False(t, VerifyPassword("not a hash", "anything"))
}

func TestGenerateOpaqueToken(t *testing.T) {
	token, err := GenerateOpaqueToken(40)
	require.NoError(t, err)
	// Hex encoding doubles the byte length.
	require.Len(t, token, 80)

	other, err := GenerateOpaqueToken(40)
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}
