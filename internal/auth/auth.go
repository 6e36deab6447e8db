// Package auth handles account credentials and bearer-token verification.
// Tokens are HS256 JWTs carrying the user id as subject; passwords are
// stored as bcrypt hashes and never leave this package in clear form.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("authentication required")

	// ErrInvalidToken is returned for expired, malformed, or mis-signed tokens.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrBadCredentials is returned on login with a wrong email or password.
	ErrBadCredentials = errors.New("invalid email or password")
)

// Manager issues and verifies tokens for one signing secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for the user. The subject claim carries the user
// id; the email claim is informational only.
func (m *Manager) IssueToken(userID, email string) (string, error) {
	now := m.now()
	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates signature and expiry and returns the user id.
func (m *Manager) VerifyToken(tokenString string) (string, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil || !tok.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

// HashPassword returns the bcrypt hash of a clear-text password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether the clear-text password matches the hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type contextKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID extracts the authenticated user id, or "" when unauthenticated.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
