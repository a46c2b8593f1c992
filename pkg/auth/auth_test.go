package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hashed, err := HashPassword("password123")
	require.NoError(t, err)

	assert.NotEqual(t, "password123", hashed)
	assert.True(t, CheckPassword(hashed, "password123"))
	assert.False(t, CheckPassword(hashed, "hackerpass"))
}

func TestSigner_GenerateAndValidate(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)

	token, err := s.GenerateToken("user1", "admin")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user1", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestSigner_RejectsForeignSecret(t *testing.T) {
	token, err := NewSigner("one", time.Hour).GenerateToken("user1", "admin")
	require.NoError(t, err)

	_, err = NewSigner("two", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestSigner_RejectsExpired(t *testing.T) {
	s := NewSigner("test-secret", -time.Minute)

	token, err := s.GenerateToken("user1", "admin")
	require.NoError(t, err)

	_, err = s.ValidateToken(token)
	assert.Error(t, err)
}

func TestSigner_DefaultSecret(t *testing.T) {
	token, err := NewSigner("", time.Hour).GenerateToken("user1", "admin")
	require.NoError(t, err)

	_, err = NewSigner(defaultSecret, time.Hour).ValidateToken(token)
	assert.NoError(t, err)
}
