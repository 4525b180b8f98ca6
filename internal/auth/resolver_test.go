package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "resolver-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestResolveValidToken(t *testing.T) {
	resolver := NewJWTResolver(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":  "u1",
		"name": "Ana",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	identity, err := resolver.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Username: "Ana"}, identity)
}

func TestResolveRejectsBadTokens(t *testing.T) {
	resolver := NewJWTResolver(testSecret)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", signToken(t, "other-secret", jwt.MapClaims{
			"sub": "u1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"expired", signToken(t, testSecret, jwt.MapClaims{
			"sub": "u1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{"missing subject", signToken(t, testSecret, jwt.MapClaims{
			"name": "Ana",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(ctx, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestResolveRejectsUnsignedToken(t *testing.T) {
	resolver := NewJWTResolver(testSecret)

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
