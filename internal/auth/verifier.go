// Package auth holds the HTTP middleware that turns a bearer token into a local
// user and gates admin-only routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
	"github.com/gipity/gipity-scaffold/internal/model"
)

// ContextKey is where the authenticated user is stored on the echo context.
const ContextKey = "currentUser"

// Authenticator resolves an access token to a local user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*model.User, error)
}

// Verifier returns middleware that requires a valid bearer token. Tokens are
// opaque here: the identity provider validates them, so the middleware only
// extracts the header and delegates.
func Verifier(authn Authenticator) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return authn.Authenticate(c.Request().Context(), token)
		},
		ErrorHandler: verifierError,
	})
}

func verifierError(_ echo.Context, err error) error {
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return apperrors.ErrUserNotFound
	case apperrors.Upstream.Has(err):
		return apperrors.Upstream.New("resolve bearer: %v", err)
	default:
		return fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}
}

// CurrentUser returns the user attached by Verifier, or nil on public routes.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(ContextKey).(*model.User)
	return user
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
