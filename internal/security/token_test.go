package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_AccessToken(t *testing.T) {
	m := NewTokenManager(testSecret)

	tok, err := m.GenerateAccessToken("user-1", "u@example.com", false)
	require.NoError(t, err)
	claims, err := m.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.False(t, claims.IsAdmin())
	assert.False(t, claims.IsServiceRole())

	tok, err = m.GenerateAccessToken("admin-1", "", true)
	require.NoError(t, err)
	claims, err = m.ValidateToken(tok)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestTokenManager_ServiceToken(t *testing.T) {
	m := NewTokenManager(testSecret)
	tok, err := m.GenerateServiceToken()
	require.NoError(t, err)

	claims, err := m.ValidateToken(tok)
	require.NoError(t, err)
	assert.True(t, claims.IsServiceRole())
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(testSecret)

	other := NewTokenManager("ffffffffffffffffffffffffffffffff")
	tok, _ := other.GenerateAccessToken("user-1", "", false)
	_, err := m.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, UserClaims{
		Role: RoleAuthenticated,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	s, _ := expired.SignedString([]byte(testSecret))
	_, err = m.ValidateToken(s)
	assert.ErrorIs(t, err, ErrExpiredToken)

	anon := jwt.NewWithClaims(jwt.SigningMethodHS256, UserClaims{Role: RoleAuthenticated})
	s, _ = anon.SignedString([]byte(testSecret))
	_, err = m.ValidateToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
