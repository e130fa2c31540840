package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-management/internal/auth"
	"github.com/iliyamo/inventory-management/internal/config"
	"github.com/iliyamo/inventory-management/internal/model"
	"github.com/iliyamo/inventory-management/internal/token"
)

// refreshCookie is scoped to the refresh endpoint so the long-lived token
// is never sent with ordinary API requests.
const (
	refreshCookie     = "refresh_token"
	refreshCookiePath = "/v1/auth/refresh-token"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg config.Config
	Svc *auth.Service
}

func NewAuthHandler(cfg config.Config, svc *auth.Service) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Svc: svc}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	Phone    string `json:"phone,omitempty"`
}
type loginReq struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}
type logoutReq struct {
	AllDevices bool `json:"allDevices"`
}
type forgotReq struct {
	Email string `json:"email"`
}
type resetReq struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}
type changeReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type userPart struct {
	ID         uint64     `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone,omitempty"`
	Role       string     `json:"role"`
	IsVerified bool       `json:"is_verified"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID: u.ID, Email: u.Email, Name: u.Name, Phone: u.Phone,
		Role: u.Role, IsVerified: u.IsVerified, LastLogin: u.LastLogin,
	}
}

func clientOf(c echo.Context) auth.Client {
	return auth.Client{IP: c.RealIP(), UserAgent: c.Request().UserAgent()}
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// Register: create an unverified account and mail the verification token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password/name required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Svc.Register(ctx, auth.RegisterInput{
		Email: req.Email, Password: req.Password, Name: req.Name,
		Phone: req.Phone, Role: strings.ToUpper(strings.TrimSpace(req.Role)),
	}, clientOf(c))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": toUserPart(u)})
}

// Login: verify credentials, set token cookies, return the user.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, pair, err := h.Svc.Login(ctx, req.Email, req.Password, req.RememberMe, clientOf(c))
	if err != nil {
		return jsonError(c, err)
	}
	h.setAuthCookies(c, pair)
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// RefreshToken: rotate the refresh token from its cookie (or body) and
// re-set both cookies.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	raw := ""
	if ck, err := c.Cookie(refreshCookie); err == nil {
		raw = ck.Value
	}
	if raw == "" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = c.Bind(&body)
		raw = strings.TrimSpace(body.RefreshToken)
	}
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing refresh token"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, pair, err := h.Svc.Refresh(ctx, raw, clientOf(c))
	if err != nil {
		return jsonError(c, err)
	}
	h.setAuthCookies(c, pair)
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

// Logout: invalidate the presented token pair, or all tokens with
// allDevices, then clear cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	_ = c.Bind(&req)

	claims, ok := c.Get("claims").(token.Claims)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no session to log out"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.Logout(ctx, claims, req.AllDevices, clientOf(c)); err != nil {
		return jsonError(c, err)
	}
	h.clearAuthCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// ForgotPassword: always answer with the same message, whether or not the
// account exists.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	msg, err := h.Svc.ForgotPassword(ctx, strings.ToLower(strings.TrimSpace(req.Email)), clientOf(c))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// ResetPassword: consume the reset token and force re-login everywhere.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and newPassword required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.ResetPassword(ctx, req.Token, req.NewPassword, req.ConfirmPassword, clientOf(c)); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset"})
}

// ChangePassword: authenticated self-service change.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changeReq
	if err := c.Bind(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "currentPassword and newPassword required"})
	}
	userID, ok := c.Get("user_id").(uint64)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword, clientOf(c)); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

// VerifyEmail: consume the emailed verification token.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	raw := c.QueryParam("token")
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.VerifyEmail(ctx, raw, clientOf(c)); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": c.Get("user_id"),
		"role":    c.Get("role"),
	})
}

// ----- cookies -----

func (h *AuthHandler) cookie(name, value, path string, expires time.Time) *http.Cookie {
	prod := h.Cfg.Env == "prod"
	sameSite := http.SameSiteLaxMode
	if prod {
		sameSite = http.SameSiteStrictMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   prod,
		SameSite: sameSite,
	}
}

func (h *AuthHandler) setAuthCookies(c echo.Context, pair auth.TokenPair) {
	c.SetCookie(h.cookie(token.AccessCookie, pair.AccessToken, "/", pair.AccessExp))
	if pair.RefreshToken != "" {
		c.SetCookie(h.cookie(refreshCookie, pair.RefreshToken, refreshCookiePath, pair.RefreshExp))
	}
}

func (h *AuthHandler) clearAuthCookies(c echo.Context) {
	expired := time.Unix(0, 0)
	c.SetCookie(h.cookie(token.AccessCookie, "", "/", expired))
	c.SetCookie(h.cookie(refreshCookie, "", refreshCookiePath, expired))
}
