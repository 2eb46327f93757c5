package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"knowledge-hub/internal/account/domain"
	"knowledge-hub/internal/auth"
	"knowledge-hub/internal/common/clock"
	commonerrors "knowledge-hub/internal/common/errors"
	"knowledge-hub/internal/common/logger"
)

type mockUserRepo struct {
	createFunc           func(ctx context.Context, user domain.User) error
	findByEmailFunc      func(ctx context.Context, email string) (domain.User, error)
	findByIDFunc         func(ctx context.Context, id domain.ID) (domain.User, error)
	updateProfileFunc    func(ctx context.Context, id domain.ID, name, email string) (domain.User, error)
	touchLastActiveFunc  func(ctx context.Context, id domain.ID, at time.Time) error
	countAllFunc         func(ctx context.Context) (int64, error)
	countActiveSinceFunc func(ctx context.Context, since time.Time) (int64, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user domain.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return domain.User{}, commonerrors.ErrUserNotFound
}

func (m *mockUserRepo) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return domain.User{}, commonerrors.ErrUserNotFound
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id domain.ID, name, email string) (domain.User, error) {
	if m.updateProfileFunc != nil {
		return m.updateProfileFunc(ctx, id, name, email)
	}
	return domain.User{}, commonerrors.ErrUserNotFound
}

func (m *mockUserRepo) TouchLastActive(ctx context.Context, id domain.ID, at time.Time) error {
	if m.touchLastActiveFunc != nil {
		return m.touchLastActiveFunc(ctx, id, at)
	}
	return nil
}

func (m *mockUserRepo) CountAll(ctx context.Context) (int64, error) {
	if m.countAllFunc != nil {
		return m.countAllFunc(ctx)
	}
	return 0, nil
}

func (m *mockUserRepo) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	if m.countActiveSinceFunc != nil {
		return m.countActiveSinceFunc(ctx, since)
	}
	return 0, nil
}

type mockHasher struct {
	hashFunc    func(password string) (string, error)
	compareFunc func(hash, password string) error
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed:" + password, nil
}

func (m *mockHasher) Compare(hash string, password string) error {
	if m.compareFunc != nil {
		return m.compareFunc(hash, password)
	}
	if hash != "hashed:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

type stubIDGenerator struct{ id string }

func (g *stubIDGenerator) NewID() string { return g.id }

func setupAccountService(repo *mockUserRepo, hasher *mockHasher) (*AccountService, *clock.MockClock) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	authenticator := auth.NewAuthenticator("test-secret-key-with-enough-bytes-0123", time.Hour, clk)
	svc := NewAccountService(repo, hasher, &stubIDGenerator{id: "user-1"}, authenticator, clk, logger.Discard())
	return svc, clk
}

func TestAccountService_Register_Success(t *testing.T) {
	var created domain.User
	repo := &mockUserRepo{
		createFunc: func(ctx context.Context, user domain.User) error {
			created = user
			return nil
		},
	}
	svc, clk := setupAccountService(repo, &mockHasher{})

	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "  Alice  ",
		Email:    "  Alice@Example.COM ",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if user.ID != "user-1" {
		t.Errorf("expected generated id, got %s", user.ID)
	}
	if created.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %s", created.Email)
	}
	if created.Name != "Alice" {
		t.Errorf("expected trimmed name, got %q", created.Name)
	}
	if created.PasswordHash != "hashed:password123" {
		t.Errorf("expected hashed password stored, got %s", created.PasswordHash)
	}
	if !created.CreatedAt.Equal(clk.Now()) {
		t.Errorf("expected clock timestamp, got %v", created.CreatedAt)
	}
}

func TestAccountService_Register_EmailExists(t *testing.T) {
	repo := &mockUserRepo{
		createFunc: func(ctx context.Context, user domain.User) error {
			return commonerrors.ErrEmailAlreadyExists
		},
	}
	svc, _ := setupAccountService(repo, &mockHasher{})

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	if !errors.Is(err, commonerrors.ErrEmailAlreadyExists) {
		t.Errorf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestAccountService_Login_Success(t *testing.T) {
	touched := false
	repo := &mockUserRepo{
		findByEmailFunc: func(ctx context.Context, email string) (domain.User, error) {
			if email != "alice@example.com" {
				t.Errorf("expected normalized email lookup, got %s", email)
			}
			return domain.User{
				ID:           "user-1",
				Email:        email,
				PasswordHash: "hashed:password123",
				Admin:        true,
			}, nil
		},
		touchLastActiveFunc: func(ctx context.Context, id domain.ID, at time.Time) error {
			touched = true
			return nil
		},
	}
	svc, _ := setupAccountService(repo, &mockHasher{})

	token, err := svc.Login(context.Background(), LoginInput{
		Email:    "Alice@Example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token == "" {
		t.Error("expected access token to be set")
	}
	if !touched {
		t.Error("expected last_active to be touched on login")
	}
}

func TestAccountService_Login_UserNotFound(t *testing.T) {
	svc, _ := setupAccountService(&mockUserRepo{}, &mockHasher{})

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "missing@example.com",
		Password: "password123",
	})
	if !errors.Is(err, commonerrors.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAccountService_Login_WrongPassword(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFunc: func(ctx context.Context, email string) (domain.User, error) {
			return domain.User{
				ID:           "user-1",
				Email:        email,
				PasswordHash: "hashed:correct",
			}, nil
		},
	}
	svc, _ := setupAccountService(repo, &mockHasher{})

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	if !errors.Is(err, commonerrors.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAccountService_Login_TouchFailureDoesNotFailLogin(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFunc: func(ctx context.Context, email string) (domain.User, error) {
			return domain.User{
				ID:           "user-1",
				Email:        email,
				PasswordHash: "hashed:password123",
			}, nil
		},
		touchLastActiveFunc: func(ctx context.Context, id domain.ID, at time.Time) error {
			return errors.New("write failed")
		},
	}
	svc, _ := setupAccountService(repo, &mockHasher{})

	token, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token == "" {
		t.Error("expected access token to be set")
	}
}
