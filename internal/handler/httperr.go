package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/inventory-management/internal/auth"
	"github.com/iliyamo/inventory-management/internal/repository"
	"github.com/iliyamo/inventory-management/internal/security"
	"github.com/iliyamo/inventory-management/internal/token"
)

// jsonError translates an error into the HTTP taxonomy and writes the JSON
// body.  Unknown errors are logged with full context and surfaced only as
// a generic 500: no storage-engine shapes, secrets or stacks reach the
// client.
func jsonError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, token.ErrTokenInvalid),
		errors.Is(err, token.ErrTokenExpired):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrAccountUnverified):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrSamePassword),
		errors.Is(err, auth.ErrNoTokenContext):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, security.ErrAccountLocked):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": err.Error()})
	}
	log.Printf("handler: %s %s failed: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
