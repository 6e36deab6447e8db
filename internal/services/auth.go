package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/my3-ai/concierge/internal/auth"
	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/store"
)

// AuthService registers accounts and exchanges credentials for tokens.
type AuthService struct {
	store  store.Store
	tokens *auth.Manager
}

func NewAuthService(s store.Store, tokens *auth.Manager) *AuthService {
	return &AuthService{store: s, tokens: tokens}
}

// Register creates an account and returns it with a fresh token. The email
// must be unique; a duplicate surfaces as a conflict error.
func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", model.NewValidationError("email", "valid email required")
	}
	if len(password) < 8 {
		return nil, "", model.NewValidationError("password", "password must be at least 8 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	u, err := s.store.Users().Create(ctx, &model.User{
		Email:          email,
		DisplayName:    strings.TrimSpace(displayName),
		HashedPassword: hash,
	})
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.IssueToken(u.UserID, u.Email)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login verifies credentials and returns the account with a fresh token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return nil, "", auth.ErrBadCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !auth.CheckPassword(u.HashedPassword, password) {
		return nil, "", auth.ErrBadCredentials
	}
	token, err := s.tokens.IssueToken(u.UserID, u.Email)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// TokenTTL converts configured minutes to a duration, with a week fallback.
func TokenTTL(minutes int) time.Duration {
	if minutes <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(minutes) * time.Minute
}
