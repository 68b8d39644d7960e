package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/viewdesk/viewdesk/config"
)

func newTestService(t *testing.T, password string) *Service {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	return NewService(
		config.OperatorConfig{Email: "ops@example.com", PasswordHash: hash},
		&config.JWTConfig{Secret: "test-secret", Expiration: "1h"},
	)
}

func TestLogin_IssuesValidToken(t *testing.T) {
	svc := newTestService(t, "s3cret-pass")

	resp, err := svc.Login(&LoginRequest{Email: " OPS@example.com ", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Operator.Email != "ops@example.com" {
		t.Errorf("unexpected operator %+v", resp.Operator)
	}
	if time.Until(resp.ExpiresAt) > time.Hour || time.Until(resp.ExpiresAt) < 59*time.Minute {
		t.Errorf("unexpected expiry %v", resp.ExpiresAt)
	}

	claims, err := svc.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Email != "ops@example.com" {
		t.Errorf("expected email claim, got %q", claims.Email)
	}
}

func TestLogin_RejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, "s3cret-pass")

	cases := []LoginRequest{
		{Email: "ops@example.com", Password: "wrong"},
		{Email: "someone@example.com", Password: "s3cret-pass"},
	}
	for _, req := range cases {
		req := req
		if _, err := svc.Login(&req); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials for %q, got %v", req.Email, err)
		}
	}
}

func TestLogin_Disabled(t *testing.T) {
	svc := NewService(config.OperatorConfig{}, &config.JWTConfig{Secret: "x"})
	if svc.Enabled() {
		t.Fatal("expected auth to be disabled without a password hash")
	}
	if _, err := svc.Login(&LoginRequest{Email: "a", Password: "b"}); !errors.Is(err, ErrAuthDisabled) {
		t.Errorf("expected ErrAuthDisabled, got %v", err)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := newTestService(t, "pw")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		Email: "ops@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, _ := expired.SignedString([]byte("test-secret"))
	if _, err := svc.ValidateToken(signed); err == nil {
		t.Error("expected expired token to be rejected")
	}

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{Email: "ops@example.com"})
	forged, _ := other.SignedString([]byte("another-secret"))
	if _, err := svc.ValidateToken(forged); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}

	if _, err := svc.ValidateToken("garbage"); err == nil {
		t.Error("expected malformed token to be rejected")
	}
}
