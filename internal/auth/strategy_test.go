package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/bloghub/internal/auth"
	"github.com/geocoder89/bloghub/internal/domain/user"
	"github.com/geocoder89/bloghub/internal/security"
)

// fake user store with function fields so each test controls behaviour

type fakeUserStore struct {
	createFn     func(ctx context.Context, email, passwordHash, firstName, lastName string) (user.User, error)
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	getByIDFn    func(ctx context.Context, id string) (user.User, error)
}

func (f *fakeUserStore) Create(ctx context.Context, email, passwordHash, firstName, lastName string) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, email, passwordHash, firstName, lastName)
	}
	return user.User{}, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()

	hash, err := security.HashPassword(plain)

	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	return hash
}

func TestLoginStrategyRejectionsLookTheSame(t *testing.T) {
	hash := mustHash(t, "correct-horse")

	store := &fakeUserStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			if email == "known@example.com" {
				return user.User{ID: "u1", Email: email, PasswordHash: hash}, nil
			}
			return user.User{}, user.ErrNotFound
		},
	}

	strategy := auth.NewLoginStrategy(store)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{name: "unknown email", email: "nobody@example.com", password: "correct-horse"},
		{name: "wrong password", email: "known@example.com", password: "battery-staple"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := strategy.Authenticate(context.Background(), auth.Credentials{
				Email:    tc.email,
				Password: tc.password,
			})

			// both failure modes collapse into the same rejection
			if !errors.Is(err, auth.ErrRejected) {
				t.Fatalf("got error %v, want ErrRejected", err)
			}
		})
	}
}

func TestLoginStrategyStripsPasswordHash(t *testing.T) {
	hash := mustHash(t, "correct-horse")

	store := &fakeUserStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			return user.User{ID: "u1", Email: email, PasswordHash: hash}, nil
		},
	}

	u, err := auth.NewLoginStrategy(store).Authenticate(context.Background(), auth.Credentials{
		Email:    "known@example.com",
		Password: "correct-horse",
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if u.ID != "u1" {
		t.Fatalf("got user %q, want u1", u.ID)
	}

	if u.PasswordHash != "" {
		t.Fatalf("password hash leaked out of the auth boundary")
	}
}

func TestBearerStrategy(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)

	token, err := manager.GenerateToken("u1", "known@example.com")

	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	expiredManager := auth.NewManager("test-secret", -time.Minute)
	expiredToken, err := expiredManager.GenerateToken("u1", "known@example.com")

	if err != nil {
		t.Fatalf("generate expired token: %v", err)
	}

	liveStore := &fakeUserStore{
		getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			if id == "u1" {
				return user.User{ID: "u1", Email: "known@example.com", PasswordHash: "hash"}, nil
			}
			return user.User{}, user.ErrNotFound
		},
	}

	tests := []struct {
		name    string
		token   string
		store   *fakeUserStore
		wantErr bool
	}{
		{name: "valid token resolves user", token: token, store: liveStore, wantErr: false},
		{name: "empty token rejected", token: "", store: liveStore, wantErr: true},
		{name: "garbage token rejected", token: "not-a-jwt", store: liveStore, wantErr: true},
		{name: "expired token rejected", token: expiredToken, store: liveStore, wantErr: true},
		{
			name:  "valid token for deleted user rejected",
			token: token,
			store: &fakeUserStore{
				getByIDFn: func(ctx context.Context, id string) (user.User, error) {
					return user.User{}, user.ErrNotFound
				},
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			strategy := auth.NewBearerStrategy(manager, tc.store)

			u, err := strategy.Authenticate(context.Background(), auth.Credentials{Token: tc.token})

			if tc.wantErr {
				if !errors.Is(err, auth.ErrRejected) {
					t.Fatalf("got error %v, want ErrRejected", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("expected success, got %v", err)
			}

			if u.ID != "u1" {
				t.Fatalf("got user %q, want u1", u.ID)
			}

			if u.PasswordHash != "" {
				t.Fatalf("password hash leaked out of the auth boundary")
			}
		})
	}
}

func TestSignupStrategy(t *testing.T) {
	t.Run("hashes the password before the store sees it", func(t *testing.T) {
		var storedHash string

		store := &fakeUserStore{
			createFn: func(ctx context.Context, email, passwordHash, firstName, lastName string) (user.User, error) {
				storedHash = passwordHash
				return user.User{ID: "u1", Email: email, PasswordHash: passwordHash, FirstName: firstName, LastName: lastName}, nil
			},
		}

		u, err := auth.NewSignupStrategy(store).Authenticate(context.Background(), auth.Credentials{
			Email:     "new@example.com",
			Password:  "super-secret",
			FirstName: "New",
		})

		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if storedHash == "" || storedHash == "super-secret" {
			t.Fatalf("plaintext password reached the store: %q", storedHash)
		}

		if err := security.CheckPassword(storedHash, "super-secret"); err != nil {
			t.Fatalf("stored hash does not verify against the password: %v", err)
		}

		if u.PasswordHash != "" {
			t.Fatalf("password hash leaked out of the auth boundary")
		}
	})

	t.Run("duplicate email surfaces distinctly", func(t *testing.T) {
		store := &fakeUserStore{
			createFn: func(ctx context.Context, email, passwordHash, firstName, lastName string) (user.User, error) {
				return user.User{}, user.ErrEmailTaken
			},
		}

		_, err := auth.NewSignupStrategy(store).Authenticate(context.Background(), auth.Credentials{
			Email:    "dupe@example.com",
			Password: "super-secret",
		})

		if !errors.Is(err, user.ErrEmailTaken) {
			t.Fatalf("got error %v, want ErrEmailTaken", err)
		}
	})
}

func TestManagerRejectsTamperedToken(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)

	token, err := manager.GenerateToken("u1", "a@b.com")

	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	other := auth.NewManager("other-secret", time.Hour)

	if _, err := other.VerifyToken(token); err == nil {
		t.Fatalf("token signed with a different secret verified")
	}

	claims, err := manager.VerifyToken(token)

	if err != nil {
		t.Fatalf("verify token: %v", err)
	}

	if claims.UserID != "u1" {
		t.Fatalf("subject = %q, want u1", claims.UserID)
	}
}
