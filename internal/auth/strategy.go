package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/bloghub/internal/domain/user"
	"github.com/geocoder89/bloghub/internal/security"
)

// ErrRejected is the uniform "no identity" outcome. Callers must not be able
// to tell an unknown email from a wrong password through it.
var ErrRejected = errors.New("authentication rejected")

// Credentials carries whatever the route extracted from the request. Each
// strategy reads only the fields it cares about.
type Credentials struct {
	Token     string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Strategy resolves request credentials to an authenticated identity, or
// rejects. One implementation per route flavour, selected explicitly at
// wiring time.
type Strategy interface {
	Authenticate(ctx context.Context, creds Credentials) (user.User, error)
}

// UserStore is the slice of the user repository the strategies need.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, firstName, lastName string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

// BearerStrategy verifies a signed bearer token and resolves its subject to
// a live user record. A valid signature for a deleted user is still a
// rejection.
type BearerStrategy struct {
	jwt   *Manager
	users UserStore
}

func NewBearerStrategy(jwt *Manager, users UserStore) *BearerStrategy {
	return &BearerStrategy{jwt: jwt, users: users}
}

func (s *BearerStrategy) Authenticate(ctx context.Context, creds Credentials) (user.User, error) {
	raw := strings.TrimSpace(creds.Token)

	if raw == "" {
		return user.User{}, ErrRejected
	}

	claims, err := s.jwt.VerifyToken(raw)

	if err != nil {
		return user.User{}, ErrRejected
	}

	u, err := s.users.GetByID(ctx, claims.UserID)

	if err != nil {
		return user.User{}, ErrRejected
	}

	u.PasswordHash = ""
	return u, nil
}

// LoginStrategy checks an email/password pair.
type LoginStrategy struct {
	users UserStore
}

func NewLoginStrategy(users UserStore) *LoginStrategy {
	return &LoginStrategy{users: users}
}

func (s *LoginStrategy) Authenticate(ctx context.Context, creds Credentials) (user.User, error) {
	u, err := s.users.GetByEmail(ctx, creds.Email)

	if err != nil {
		return user.User{}, ErrRejected
	}

	err = security.CheckPassword(u.PasswordHash, creds.Password)

	if err != nil {
		return user.User{}, ErrRejected
	}

	u.PasswordHash = ""
	return u, nil
}

// SignupStrategy hashes the submitted password and creates the account.
// Duplicate emails surface as user.ErrEmailTaken, not a rejection.
type SignupStrategy struct {
	users UserStore
}

func NewSignupStrategy(users UserStore) *SignupStrategy {
	return &SignupStrategy{users: users}
}

func (s *SignupStrategy) Authenticate(ctx context.Context, creds Credentials) (user.User, error) {
	hash, err := security.HashPassword(creds.Password)

	if err != nil {
		return user.User{}, err
	}

	u, err := s.users.Create(ctx, creds.Email, hash, creds.FirstName, creds.LastName)

	if err != nil {
		return user.User{}, err
	}

	u.PasswordHash = ""
	return u, nil
}
