package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/regatta-live/regata-server/internal/store/sqlite"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &JWTConfig{
		Secret:   []byte("test-secret-change-me"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}

	return NewService(st, jwtConfig)
}

func TestRegister_RejectsInvalidInput(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ab", "a@b.com", "password123"); !errors.Is(err, ErrInvalidUsername) {
		t.Fatalf("expected ErrInvalidUsername, got %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "not-an-email", "password123"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "a@b.com", "12345"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_NormalizesEmailAndDetectsDuplicates(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	token, err := svc.Register(ctx, "alice", " Alice@Example.COM ", "password123")
	if err != nil {
		t.Fatalf("expected registration success, got %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	// Same email after normalization collides.
	if _, err := svc.Register(ctx, "alice2", "alice@example.com", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Username != "alice" || claims.Email != "alice@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "ghost@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
