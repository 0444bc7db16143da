package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminSubject = "admin"
	tokenTTL     = 24 * time.Hour
)

var (
	// ErrInvalidCredentials is returned for a wrong admin password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAuthDisabled is returned by Login when no admin password is configured.
	ErrAuthDisabled = errors.New("authentication is disabled")
)

// Login checks the admin password and returns a signed JWT
func (s *Service) Login(password string) (string, error) {
	if !s.config.AuthEnabled() {
		return "", ErrAuthDisabled
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(password)); err != nil {
		s.log.Warn("Rejected admin login")
		return "", ErrInvalidCredentials
	}

	// Generate JWT
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(tokenTTL)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Info("Admin logged in")
	return tokenString, nil
}
