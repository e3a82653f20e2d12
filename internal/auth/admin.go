package auth

import (
	"github.com/labstack/echo/v4"

	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
)

// RequireAdmin rejects callers whose attached user is not an admin. It must run
// after Verifier.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !CurrentUser(c).IsAdmin() {
			return apperrors.ErrForbidden
		}
		return next(c)
	}
}
