package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// Claims are the bearer-token claims the jam service cares about. The token
// subject is the user identifier; username is the display name used in
// snapshots and reaction broadcasts.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 bearer tokens issued by the auth service.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a verifier for the shared HMAC secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates a raw token and returns its claims.
func (v *TokenVerifier) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, errors.New("missing token")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Sign issues a token for the given user. Used by tests and local tooling;
// production tokens come from the auth service with the same secret.
func (v *TokenVerifier) Sign(userID, username string) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
