package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken(7, "staff", "Issuing Officer", "STAFF", "s3cret", 5)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "STAFF", claims.Role)
	assert.Equal(t, "7", claims.Subject)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(1, "a", "A", "USER", "one", 5)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "two")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	token, err := GenerateAccessToken(1, "a", "A", "USER", "k", -1)
	require.NoError(t, err)

	_, err = ValidateAccessToken(token, "k")
	assert.ErrorIs(t, err, ErrTokenExpired)
}
