// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/inventory-management/internal/config"
	"github.com/iliyamo/inventory-management/internal/handler"
	"github.com/iliyamo/inventory-management/internal/middleware"
	"github.com/iliyamo/inventory-management/internal/model"
	"github.com/iliyamo/inventory-management/internal/token"
	"github.com/iliyamo/inventory-management/internal/ws"
)

// Register wires every route of the service.  Unauthenticated auth
// operations live under /v1/auth behind the rate limiter; everything
// requiring a live access token sits behind RequireAccess.
func Register(e *echo.Echo, a *handler.AuthHandler, n *handler.NotificationHandler,
	gateway *ws.Gateway, signer *token.Service, tokens middleware.TokenChecker,
	sessions middleware.SessionToucher, rdb *redis.Client) {

	e.GET("/healthz", handler.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	authed := middleware.RequireAccess(signer, tokens, sessions)

	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh authenticates by the refresh token itself; requiring a live
	// access token here would strand clients whose access token expired.
	g.POST("/refresh-token", a.RefreshToken)
	g.POST("/logout", a.Logout, authed)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)
	g.POST("/change-password", a.ChangePassword, authed)
	g.GET("/verify-email", a.VerifyEmail)
	g.GET("/me", a.Me, authed)

	// The websocket handshake authenticates itself (token header or query
	// param) because browsers cannot attach headers to ws dials.
	e.GET("/v1/ws", gateway.Handle)

	nt := e.Group("/v1/notifications", authed)
	nt.GET("", n.List)
	nt.POST("/:id/seen", n.MarkSeen)
	nt.POST("/:id/read", n.MarkRead)
	nt.POST("/broadcast", n.Broadcast, middleware.RequireRole(model.RoleAdmin, model.RoleManager))
}
