package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated principal attached to a connection or
// request.
type Identity struct {
	UserID   string
	Username string
}

// TokenResolver resolves a bearer token to an identity.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// JWTResolver validates HMAC-signed tokens issued by the session
// service. The user id travels in the standard "sub" claim, the display
// name in "name".
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver constructs the resolver.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

type sessionClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Resolve verifies the token signature and expiry and extracts the identity.
func (r *JWTResolver) Resolve(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: claims.Subject, Username: claims.Name}, nil
}

var _ TokenResolver = (*JWTResolver)(nil)
