package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iflyair/ifly-backend/internal/core/domain"
)

type stubAuthRepo struct {
	byEmail map[string]*domain.User
	nextID  int64
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{byEmail: map[string]*domain.User{}}
}

func (r *stubAuthRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	user, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *stubAuthRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	for _, user := range r.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubAuthRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.byEmail[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	r.nextID++
	clone := *user
	clone.ID = r.nextID
	r.byEmail[user.Email] = &clone
	return &clone, nil
}

const testSecret = "test-secret"

func newAuthFixture() (*AuthService, *stubAuthRepo, *memStore) {
	repo := newStubAuthRepo()
	store := newMemStore()
	return NewAuthService(repo, store, testSecret, time.Hour), repo, store
}

func TestRegisterCreatesLoyaltyAccount(t *testing.T) {
	svc, _, store := newAuthFixture()

	user, err := svc.Register(context.Background(), "alice@example.com", "hunter2longer", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("user id not assigned")
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("role = %v, want user", user.Role)
	}
	if user.PasswordHash == "hunter2longer" {
		t.Fatal("password stored in the clear")
	}

	accounts := store.data["accounts"]
	if len(accounts) != 1 {
		t.Fatalf("accounts created = %d, want 1", len(accounts))
	}
	for _, acc := range accounts {
		if owner, _ := acc.Int64("user_id"); owner != user.ID {
			t.Fatalf("account user_id = %v, want %d", acc["user_id"], user.ID)
		}
		if balance, _ := acc.Int64("balance"); balance != 0 {
			t.Fatalf("opening balance = %v, want 0", acc["balance"])
		}
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newAuthFixture()
	_, err := svc.Register(context.Background(), "x@example.com", "hunter2longer", "superuser")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown role: got %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()
	if _, err := svc.Register(context.Background(), "a@example.com", "hunter2longer", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), "a@example.com", "hunter2longer", "")
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("duplicate register: got %v, want ErrUserExists", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newAuthFixture()
	registered, err := svc.Register(context.Background(), "a@example.com", "hunter2longer", "admin")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	token, user, err := svc.Login(context.Background(), "a@example.com", "hunter2longer")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("login user id = %d, want %d", user.ID, registered.ID)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(testSecret), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if sub, _ := claims["sub"].(float64); int64(sub) != registered.ID {
		t.Fatalf("sub = %v, want %d", claims["sub"], registered.ID)
	}
	if claims["role"] != "admin" {
		t.Fatalf("role claim = %v, want admin", claims["role"])
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture()
	if _, err := svc.Register(context.Background(), "a@example.com", "hunter2longer", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, _, err := svc.Login(context.Background(), "a@example.com", "wrong-password")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _, _ := newAuthFixture()
	_, _, err := svc.Login(context.Background(), "ghost@example.com", "whatever123")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("unknown user: got %v, want ErrUserNotFound", err)
	}
}
