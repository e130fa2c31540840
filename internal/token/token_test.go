package token

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/inventory-management/internal/config"
	"github.com/iliyamo/inventory-management/internal/model"
)

func testConfig() config.Config {
	return config.Config{
		AccessSecret:        "access-secret",
		RefreshSecret:       "refresh-secret",
		VerifyEmailSecret:   "verify-secret",
		ResetPasswordSecret: "reset-secret",
		AccessExpiry:        15 * time.Minute,
		RefreshExpiry:       7 * 24 * time.Hour,
		VerifyEmailExpiry:   24 * time.Hour,
		ResetPasswordExpiry: time.Hour,
	}
}

func TestIssueVerifyRoundtrip(t *testing.T) {
	svc := NewService(testConfig())
	claims := Claims{UserID: 7, Email: "a@b.com", Role: model.RoleStaff, TokenID: "tid-1"}

	signed, exp, err := svc.Issue(claims, model.TokenAccess)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	got, err := svc.Verify(signed, model.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.UserID)
	assert.Equal(t, "a@b.com", got.Email)
	assert.Equal(t, model.RoleStaff, got.Role)
	assert.Equal(t, "tid-1", got.TokenID)
	assert.Equal(t, model.TokenAccess, got.TokenType)
}

func TestVerifyRejectsWrongType(t *testing.T) {
	svc := NewService(testConfig())
	signed, _, err := svc.Issue(Claims{UserID: 1, TokenID: "tid-2"}, model.TokenVerifyEmail)
	require.NoError(t, err)

	// An email-verification token must never pass as an access token.
	_, err = svc.Verify(signed, model.TokenAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyRejectsExpiredButReturnsClaims(t *testing.T) {
	cfg := testConfig()
	cfg.AccessExpiry = -time.Minute
	svc := NewService(cfg)

	signed, _, err := svc.Issue(Claims{UserID: 3, TokenID: "tid-3"}, model.TokenAccess)
	require.NoError(t, err)

	claims, err := svc.Verify(signed, model.TokenAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, "tid-3", claims.TokenID)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc := NewService(testConfig())
	signed, _, err := svc.Issue(Claims{UserID: 1, TokenID: "tid-4"}, model.TokenAccess)
	require.NoError(t, err)

	_, err = svc.Verify(signed+"x", model.TokenAccess)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestIssueUnknownType(t *testing.T) {
	svc := NewService(testConfig())
	_, _, err := svc.Issue(Claims{}, "BANANA")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestExtract(t *testing.T) {
	t.Run("bearer header wins", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer abc")
		r.AddCookie(&http.Cookie{Name: AccessCookie, Value: "xyz"})
		raw, ok := Extract(r)
		require.True(t, ok)
		assert.Equal(t, "abc", raw)
	})

	t.Run("cookie fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.AddCookie(&http.Cookie{Name: AccessCookie, Value: "xyz"})
		raw, ok := Extract(r)
		require.True(t, ok)
		assert.Equal(t, "xyz", raw)
	})

	t.Run("absent", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		_, ok := Extract(r)
		assert.False(t, ok)
	})
}
