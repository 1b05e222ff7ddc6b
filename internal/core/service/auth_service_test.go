package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/obalifehub/lifehub/internal/core/domain"
)

type stubIdentityRepo struct {
	byEmail   map[string]*domain.Identity
	createErr error
	deleted   []string
}

func newStubIdentityRepo() *stubIdentityRepo {
	return &stubIdentityRepo{byEmail: make(map[string]*domain.Identity)}
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

func (r *stubIdentityRepo) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, exists := r.byEmail[identity.Email]; exists {
		return nil, domain.ErrIdentityExists
	}
	r.byEmail[identity.Email] = cloneIdentity(identity)
	return cloneIdentity(identity), nil
}

func (r *stubIdentityRepo) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	if i, ok := r.byEmail[email]; ok {
		return cloneIdentity(i), nil
	}
	return nil, domain.ErrIdentityNotFound
}

func (r *stubIdentityRepo) Delete(_ context.Context, id string) error {
	for email, i := range r.byEmail {
		if i.ID == id {
			delete(r.byEmail, email)
			r.deleted = append(r.deleted, id)
			return nil
		}
	}
	return domain.ErrIdentityNotFound
}

func TestAuthService_SignUp_HashesPassword(t *testing.T) {
	repo := newStubIdentityRepo()
	svc := NewAuthService(repo, "secret", time.Hour)

	identity, err := svc.SignUp(context.Background(), "  Alice@Example.com ", "pass123")
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}
	if identity.ID == "" {
		t.Fatalf("expected generated id")
	}
	if identity.Email != "alice@example.com" {
		t.Fatalf("expected normalised email, got %q", identity.Email)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_SignUp_Validation(t *testing.T) {
	svc := NewAuthService(newStubIdentityRepo(), "secret", time.Hour)

	if _, err := svc.SignUp(context.Background(), "", "pass123"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for empty email, got %v", err)
	}
	if _, err := svc.SignUp(context.Background(), "bob@example.com", "123"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for short password, got %v", err)
	}
}

func TestAuthService_SignUp_Duplicate(t *testing.T) {
	svc := NewAuthService(newStubIdentityRepo(), "secret", time.Hour)

	_, _ = svc.SignUp(context.Background(), "bob@example.com", "pass123")
	if _, err := svc.SignUp(context.Background(), "BOB@example.com", "other12"); !errors.Is(err, domain.ErrIdentityExists) {
		t.Fatalf("expected ErrIdentityExists, got %v", err)
	}
}

func TestAuthService_SignIn(t *testing.T) {
	svc := NewAuthService(newStubIdentityRepo(), "secret", time.Hour)
	created, _ := svc.SignUp(context.Background(), "carol@example.com", "s3cret")

	identity, err := svc.SignIn(context.Background(), "carol@example.com", "s3cret")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if identity.ID != created.ID {
		t.Fatalf("expected identity %s, got %s", created.ID, identity.ID)
	}
}

func TestAuthService_SignIn_BadCredentials(t *testing.T) {
	svc := NewAuthService(newStubIdentityRepo(), "secret", time.Hour)
	_, _ = svc.SignUp(context.Background(), "dave@example.com", "goodpass")

	if _, err := svc.SignIn(context.Background(), "dave@example.com", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "ghost@example.com", "pass123"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestAuthService_IssueToken(t *testing.T) {
	svc := NewAuthService(newStubIdentityRepo(), "secret", time.Hour)
	identity := &domain.Identity{ID: "u-1", Email: "erin@example.com"}

	token, err := svc.IssueToken(identity, "sess-1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["sub"] != "u-1" || claims["sid"] != "sess-1" || claims["email"] != "erin@example.com" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}
