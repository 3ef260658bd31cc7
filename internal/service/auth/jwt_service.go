package auth

import (
	"context"
	"time"
)

// Verifier validates bearer tokens issued by the upstream auth service.
type Verifier interface {
	// ValidateToken checks the signature and time claims of tokenString and
	// returns its claims. Returns ErrExpiredToken, ErrTokenNotYetValid or
	// ErrInvalidToken when the token cannot be accepted.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the verified claims of a bearer token.
type Claims struct {
	// Subject identifies the caller the token was issued for.
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
