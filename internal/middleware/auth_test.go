package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/inventory-management/internal/config"
	"github.com/iliyamo/inventory-management/internal/model"
	"github.com/iliyamo/inventory-management/internal/token"
)

type fakeTokenChecker struct {
	rec     model.Token
	err     error
	touched []string
}

func (f *fakeTokenChecker) GetByID(_ context.Context, id string) (model.Token, error) {
	if f.err != nil {
		return model.Token{}, f.err
	}
	return f.rec, nil
}

func (f *fakeTokenChecker) Touch(_ context.Context, id string, _ time.Time) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakeSessionToucher struct {
	userID    uint64
	ip        string
	userAgent string
	calls     int
}

func (f *fakeSessionToucher) Touch(_ context.Context, userID uint64, ip, userAgent string, _ time.Time) error {
	f.userID, f.ip, f.userAgent = userID, ip, userAgent
	f.calls++
	return nil
}

func signerConfig() config.Config {
	return config.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: time.Hour,
	}
}

func issueAccess(t *testing.T, signer *token.Service, userID uint64, tokenID string) string {
	t.Helper()
	raw, _, err := signer.Issue(token.Claims{UserID: userID, Role: model.RoleStaff, TokenID: tokenID}, model.TokenAccess)
	require.NoError(t, err)
	return raw
}

func invoke(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, echo.Context, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	return rec, c, err
}

func TestRequireAccessTouchesTokenAndSession(t *testing.T) {
	signer := token.NewService(signerConfig())
	tokens := &fakeTokenChecker{rec: model.Token{
		ID: "tid-1", UserID: 9, Type: model.TokenAccess, ExpiresAt: time.Now().Add(time.Hour),
	}}
	sessions := &fakeSessionToucher{}

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+issueAccess(t, signer, 9, "tid-1"))
	req.Header.Set("User-Agent", "inventory-cli")
	req.RemoteAddr = "10.1.2.3:5555"

	rec, c, err := invoke(RequireAccess(signer, tokens, sessions), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"tid-1"}, tokens.touched)
	assert.Equal(t, 1, sessions.calls, "every authenticated request refreshes its session")
	assert.Equal(t, uint64(9), sessions.userID)
	assert.Equal(t, "10.1.2.3", sessions.ip)
	assert.Equal(t, "inventory-cli", sessions.userAgent)

	assert.Equal(t, uint64(9), c.Get("user_id"))
	assert.Equal(t, model.RoleStaff, c.Get("role"))
}

func TestRequireAccessMissingToken(t *testing.T) {
	signer := token.NewService(signerConfig())
	sessions := &fakeSessionToucher{}

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	rec, _, err := invoke(RequireAccess(signer, &fakeTokenChecker{}, sessions), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, sessions.calls)
}

func TestRequireAccessRevokedRecord(t *testing.T) {
	signer := token.NewService(signerConfig())
	tokens := &fakeTokenChecker{rec: model.Token{
		ID: "tid-1", UserID: 9, Type: model.TokenAccess,
		ExpiresAt: time.Now().Add(time.Hour), Invalidated: true,
	}}
	sessions := &fakeSessionToucher{}

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+issueAccess(t, signer, 9, "tid-1"))

	rec, _, err := invoke(RequireAccess(signer, tokens, sessions), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "valid signature with a revoked record is refused")
	assert.Empty(t, tokens.touched)
	assert.Zero(t, sessions.calls)
}

func TestRequireAccessRejectsRefreshToken(t *testing.T) {
	signer := token.NewService(signerConfig())
	sessions := &fakeSessionToucher{}

	raw, _, err := signer.Issue(token.Claims{UserID: 9, TokenID: "tid-2"}, model.TokenRefresh)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+raw)

	rec, _, errInvoke := invoke(RequireAccess(signer, &fakeTokenChecker{}, sessions), req)
	require.NoError(t, errInvoke)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, sessions.calls)
}
