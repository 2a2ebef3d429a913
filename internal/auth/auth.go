// Package auth guards the administrative API with a bcrypt-checked login and HS256 bearer tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"trivia-board-service/internal/domain"
)

const issuer = "trivia-board"

type Config struct {
	Disabled          bool
	Secret            string
	AdminUser         string
	AdminPasswordHash string
	TokenTTL          time.Duration
}

type Authenticator struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) (*Authenticator, error) {
	if !cfg.Disabled {
		if cfg.Secret == "" {
			return nil, errors.New("auth secret not configured")
		}
		if cfg.AdminUser == "" || cfg.AdminPasswordHash == "" {
			return nil, errors.New("admin credentials not configured")
		}
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	return &Authenticator{cfg: cfg, now: time.Now}, nil
}

// Enabled reports whether mutating routes require a token.
func (a *Authenticator) Enabled() bool {
	return !a.cfg.Disabled
}

// Login checks the admin credentials and issues a signed token.
func (a *Authenticator) Login(username, password string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, errors.New("authentication is disabled")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.AdminUser)) == 1
	// The hash is always checked so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword([]byte(a.cfg.AdminPasswordHash), []byte(password))
	if !userOK || passErr != nil {
		return "", time.Time{}, domain.ErrInvalidCredentials
	}

	now := a.now()
	expiresAt := now.Add(a.cfg.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte(a.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates a bearer token and returns its subject.
func (a *Authenticator) Verify(raw string) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(a.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return claims.Subject, nil
}

// HashPassword produces the bcrypt hash stored in auth.adminPasswordHash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
