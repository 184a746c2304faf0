package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestGenerateAndParse(t *testing.T) {
	tok, err := GenerateJWT("user-1", "service_role", secret, time.Hour)
	require.NoError(t, err)

	id, err := ParseJWT(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "service_role", id.Role)
}

func TestParseJWT_Rejects(t *testing.T) {
	expired, err := GenerateJWT("user-1", "", secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	good, err := GenerateJWT("user-1", "", secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(good, "other-secret")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	noSub, err := GenerateJWT("", "", secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(noSub, secret)
	assert.ErrorIs(t, err, ErrMissingSubject)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	s, err := noExp.SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = ParseJWT(s, secret)
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	assert.Equal(t, "abc", ExtractToken("Bearer abc"))
	assert.Equal(t, "abc", ExtractToken("bearer abc"))
	assert.Equal(t, "", ExtractToken(""))
	assert.Equal(t, "", ExtractToken("Basic abc"))
	assert.Equal(t, "", ExtractToken("Bearer"))
}
