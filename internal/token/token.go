// Package token issues and verifies the signed, typed tokens used across
// the auth flows.  Every token type has its own signing secret and expiry
// so that a leaked low-value secret (say, email verification) cannot mint
// access tokens.  Signed tokens embed the id of a persisted token record;
// the record, not the signature, is the source of truth for revocation.
package token

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/inventory-management/internal/config"
	"github.com/iliyamo/inventory-management/internal/model"
)

// AccessCookie is the cookie consulted when no Authorization header is set.
const AccessCookie = "access_token"

var (
	// ErrTokenExpired is returned when a token's exp claim has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for a bad signature, malformed structure
	// or a token presented as the wrong type.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrUnknownType is returned when no secret is configured for a type.
	ErrUnknownType = errors.New("unknown token type")
)

// Claims is the payload embedded in every signed token.  TokenID references
// the persisted token record.  PairedID is set only on REFRESH tokens and
// names the ACCESS record issued in the same login, so rotation can
// invalidate the pair together.
type Claims struct {
	UserID    uint64 `json:"uid"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	TokenID   string `json:"tid"`
	PairedID  string `json:"pid,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with per-type secrets from config.
type Service struct {
	cfg config.Config
}

func NewService(cfg config.Config) *Service { return &Service{cfg: cfg} }

// secretAndTTL picks the signing secret and lifetime for a token type.
func (s *Service) secretAndTTL(tokenType string) ([]byte, time.Duration, error) {
	switch tokenType {
	case model.TokenAccess:
		return []byte(s.cfg.AccessSecret), s.cfg.AccessExpiry, nil
	case model.TokenRefresh:
		return []byte(s.cfg.RefreshSecret), s.cfg.RefreshExpiry, nil
	case model.TokenVerifyEmail:
		return []byte(s.cfg.VerifyEmailSecret), s.cfg.VerifyEmailExpiry, nil
	case model.TokenResetPassword:
		return []byte(s.cfg.ResetPasswordSecret), s.cfg.ResetPasswordExpiry, nil
	}
	return nil, 0, ErrUnknownType
}

// Issue signs claims as the given type and returns the serialized token and
// its expiry.  The TokenType claim is always overwritten with tokenType so
// a caller cannot accidentally sign a payload tagged as a different type.
func (s *Service) Issue(claims Claims, tokenType string) (string, time.Time, error) {
	secret, ttl, err := s.secretAndTTL(tokenType)
	if err != nil {
		return "", time.Time{}, err
	}
	if len(secret) == 0 {
		return "", time.Time{}, ErrUnknownType
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims.TokenType = tokenType
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify validates signature and expiry against the expected type's secret
// and rejects tokens whose embedded type tag does not match.  A token of
// the wrong type fails either on the signature (different secret) or on
// the explicit type check, never silently passes.
func (s *Service) Verify(raw, expectedType string) (Claims, error) {
	secret, _, err := s.secretAndTTL(expectedType)
	if err != nil {
		return Claims{}, err
	}
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims.TokenType == expectedType {
			// Claims are parsed before expiry validation; returning them
			// lets callers auto-invalidate the matching record.
			return claims, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !tok.Valid || claims.TokenType != expectedType {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

// Extract reads a bearer token from the Authorization header, falling back
// to the access_token cookie.  It is pure and performs no validation.
func Extract(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); raw != "" {
			return raw, true
		}
	}
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}
