package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken("secret", 42, "MANAGER", 5)
	require.NoError(t, err)

	id, role, err := ParseAccessToken("secret", at.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, "MANAGER", role)

	_, _, err = ParseAccessToken("other", at.Token)
	assert.Error(t, err)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	expired, err := NewAccessToken("secret", 1, "ADMIN", -1)
	require.NoError(t, err)
	_, _, err = ParseAccessToken("secret", expired.Token)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "role": "ADMIN"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, _, err = ParseAccessToken("secret", none)
	assert.Error(t, err)

	noRole, err := NewAccessToken("secret", 1, "", 5)
	require.NoError(t, err)
	_, _, err = ParseAccessToken("secret", noRole.Token)
	assert.Error(t, err)
}

func TestRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)
	assert.Len(t, HashRefreshRaw(rt.Raw), 64)
	assert.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter22"))
	assert.False(t, VerifyPassword(hash, "hunter23"))
}
