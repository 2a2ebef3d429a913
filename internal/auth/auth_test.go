package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"trivia-board-service/internal/domain"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	a, err := New(Config{
		Secret:            "test-secret",
		AdminUser:         "host",
		AdminPasswordHash: string(hash),
		TokenTTL:          time.Hour,
	})
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	return a
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	a := newTestAuthenticator(t)

	token, expiresAt, err := a.Login("host", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Fatalf("unexpected expiry %s", expiresAt)
	}
	subject, err := a.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "host" {
		t.Fatalf("expected subject host, got %q", subject)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	a := newTestAuthenticator(t)

	if _, _, err := a.Login("host", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, _, err := a.Login("guest", "s3cret"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	a := newTestAuthenticator(t)
	token, _, err := a.Login("host", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := a.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
	a.now = time.Now

	other := newTestAuthenticator(t)
	other.cfg.Secret = "another-secret"
	if _, err := other.Verify(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected signature mismatch to fail, got %v", err)
	}
	if _, err := a.Verify("not-a-token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected garbage to fail, got %v", err)
	}
}

func TestNewRequiresSecretsUnlessDisabled(t *testing.T) {
	if _, err := New(Config{AdminUser: "host", AdminPasswordHash: "x"}); err == nil {
		t.Fatalf("expected missing secret to fail")
	}
	a, err := New(Config{Disabled: true})
	if err != nil {
		t.Fatalf("disabled auth: %v", err)
	}
	if a.Enabled() {
		t.Fatalf("expected auth disabled")
	}
	if _, err := a.Verify(""); err != nil {
		t.Fatalf("disabled auth accepts any request, got %v", err)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")) != nil {
		t.Fatalf("hash does not match password")
	}
	if _, err := HashPassword(""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected empty password to fail, got %v", err)
	}
}
