package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appErrors "github.com/acadops/timetable-api/pkg/errors"
)

// IdentityClaims is the JWT payload carried by API callers. Subject holds the
// student or teacher ID used as the attendance marker identity.
type IdentityClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenService validates and mints HS256 access tokens.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenService constructs the token service.
func NewTokenService(secret, issuer, audience string) *TokenService {
	return &TokenService{secret: []byte(secret), issuer: issuer, audience: audience}
}

// ValidateToken parses and verifies an access token.
func (s *TokenService) ValidateToken(raw string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid access token")
	}
	if !token.Valid || claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid access token")
	}
	return claims, nil
}

// MintToken issues a signed access token for an identity. Used by tests and
// operational tooling; the API itself does not expose login.
func (s *TokenService) MintToken(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}
