package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"eyewear/internal/domain"
)

var ErrBadCreds = errors.New("invalid email or password")

// UserStore holds accounts and the sid cookie to user binding.
type UserStore interface {
	ByEmail(ctx context.Context, email string) (*domain.User, error)
	ByID(ctx context.Context, id string) (*domain.User, error)
	BindSession(ctx context.Context, sid, userID string) error
	SessionUser(ctx context.Context, sid string) (*domain.User, error)
	UnbindSession(ctx context.Context, sid string) error
}

type AuthService struct {
	Users UserStore
}

func NewAuthService(users UserStore) *AuthService { return &AuthService{Users: users} }

func (s *AuthService) Login(ctx context.Context, sid, email, password string) (*domain.User, error) {
	u, err := s.Users.ByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	if err := s.Users.BindSession(ctx, sid, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.Users.UnbindSession(ctx, sid)
}

// CurrentUser returns the user bound to sid, or nil for anonymous sessions.
func (s *AuthService) CurrentUser(ctx context.Context, sid string) (*domain.User, error) {
	if sid == "" {
		return nil, nil
	}
	u, err := s.Users.SessionUser(ctx, sid)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return u, err
}
