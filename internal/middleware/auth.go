package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-management/internal/model"
	"github.com/iliyamo/inventory-management/internal/token"
)

// TokenChecker loads and touches the persisted record behind a token.
type TokenChecker interface {
	GetByID(ctx context.Context, id string) (model.Token, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

// SessionToucher refreshes the last-active time of the session behind an
// authenticated request.
type SessionToucher interface {
	Touch(ctx context.Context, userID uint64, ip, userAgent string, at time.Time) error
}

// RequireAccess returns an Echo middleware that validates an ACCESS token
// and its persisted record.  The cryptographic check alone is not enough:
// a revoked record rejects the request even when the signature is valid.
// Each authenticated request also refreshes the token record and the
// matching session, so last-active tracks real activity rather than login
// time.  On success the claims are injected into the request context so
// handlers can read the user via c.Get("claims") / c.Get("user_id") /
// c.Get("role").
func RequireAccess(signer *token.Service, tokens TokenChecker, sessions SessionToucher) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := token.Extract(c.Request())
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
			}
			claims, err := signer.Verify(raw, model.TokenAccess)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			now := time.Now().UTC()
			rec, err := tokens.GetByID(c.Request().Context(), claims.TokenID)
			if err != nil || rec.Type != model.TokenAccess || !rec.Live(now) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			// Best effort; a failed touch must not reject the request.
			_ = tokens.Touch(c.Request().Context(), rec.ID, now)
			_ = sessions.Touch(c.Request().Context(), claims.UserID, c.RealIP(), c.Request().UserAgent(), now)

			c.Set("claims", claims)
			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}
