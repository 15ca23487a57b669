// Package auth provides session authentication and authorization for the
// REST API.
//
//revive:disable-next-line:var-naming
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ============================================================================
// SIGNED TOKENS
// ============================================================================

// Signer issues and verifies tamper-evident tokens that bind a subject to
// the time they were issued. Tokens are HS256 JWTs carrying only sub and iat.
type Signer struct {
	key []byte
	now func() time.Time
}

// NewSigner creates a signer for the deployment-wide secret
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("signing secret cannot be empty")
	}
	return &Signer{key: []byte(secret), now: time.Now}, nil
}

// Issue signs subject together with the current time
func (s *Signer) Issue(subject string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  subject,
		IssuedAt: jwt.NewNumericDate(s.now().Truncate(time.Second)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify returns the subject of token. It fails with ErrInvalidSession if
// the signature does not match or the token was issued more than maxAge ago.
func (s *Signer) Verify(token string, maxAge time.Duration) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
		jwt.WithStrictDecoding(),
	)

	claims := &jwt.RegisteredClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.IssuedAt == nil || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing claims", ErrInvalidSession)
	}
	if s.now().Sub(claims.IssuedAt.Time) > maxAge {
		return "", fmt.Errorf("%w: expired", ErrInvalidSession)
	}
	return claims.Subject, nil
}

// GenerateSecureToken returns length random bytes, URL-safe base64 encoded
func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		length = 32
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
