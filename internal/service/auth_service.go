package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ridwanfathin/assistant-health-sync/internal/domain"
)

// AuthService verifies the session tokens issued by the hosted auth service
type AuthService interface {
	ValidateAccessToken(tokenString string) (*Claims, error)
	GenerateAccessToken(userID, email string, ttl time.Duration) (string, error)
}

// Claims represents the JWT claims of a user session
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID is the session subject
func (c *Claims) UserID() string {
	return c.Subject
}

type authService struct {
	jwtSecret []byte
	now       func() time.Time
}

// NewAuthService creates a verifier for HS256 tokens signed with jwtSecret
func NewAuthService(jwtSecret string) AuthService {
	return &authService{
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// ValidateAccessToken validates and parses an access token
func (s *authService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, fmt.Errorf("%w: session secret not configured", domain.ErrUnauthorized)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	if claims.Role == "anon" {
		return nil, fmt.Errorf("%w: anonymous key is not a user session", domain.ErrUnauthorized)
	}
	return claims, nil
}

// GenerateAccessToken signs a session token. Used by the operator CLI and tests.
func (s *authService) GenerateAccessToken(userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := s.now()
	claims := &Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
