package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("empty signing secret")
)

// Claims identifies the caller. Email is what activity messages show as the actor.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Actor is the human readable caller name, email when present.
func (c Claims) Actor() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

// SignHS256 issues a token with a shared secret. The service never calls it; local
// tooling and tests use it to mint tokens the Verifier accepts.
func SignHS256(claims Claims, secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
