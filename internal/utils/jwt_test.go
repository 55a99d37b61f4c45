package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", time.Minute, time.Hour)

	token, err := svc.GenerateToken("user-42")
	require.NoError(t, err)

	userID, err := svc.ValidateToken(*token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", *userID)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret", -time.Minute, time.Hour)

	token, err := svc.GenerateToken("user-42")
	require.NoError(t, err)

	_, err = svc.ValidateToken(*token)
	assert.Error(t, err)
}

func TestJWTService_RejectsForeignSignature(t *testing.T) {
	token, err := NewJWTService("other-secret", time.Minute, time.Hour).GenerateToken("user-42")
	require.NoError(t, err)

	_, err = NewJWTService("test-secret", time.Minute, time.Hour).ValidateToken(*token)
	assert.Error(t, err)
}

func TestJWTService_RejectsMissingUserID(t *testing.T) {
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": tokenIssuer,
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := raw.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = NewJWTService("test-secret", time.Minute, time.Hour).ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidTokenClaims)
}
