package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("poisson123")
	require.NoError(t, err)
	assert.NotEqual(t, "poisson123", hash)

	valid, err := VerifyPassword("poisson123", hash)
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = VerifyPassword("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "john.doe@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, claims.UserID)
	assert.Equal(t, "john.doe@example.com", claims.Email)
}

func TestExpiredToken(t *testing.T) {
	token, err := GenerateToken(42, "john.doe@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token)
	assert.Error(t, err)
}

func TestMalformedToken(t *testing.T) {
	_, err := ValidateToken("not-a-token")
	assert.Error(t, err)
}
