// Package handler contains the HTTP handlers. Handlers bind and validate input,
// call a service and return domain errors unchanged; the router's error handler
// renders them.
package handler

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/gipity/gipity-scaffold/internal/auth"
	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
	"github.com/gipity/gipity-scaffold/internal/model"
)

// MessageResponse is a success flag with a human readable message.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// UserResponse wraps a sanitized user.
type UserResponse struct {
	Success bool           `json:"success"`
	User    model.UserView `json:"user"`
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid request body", apperrors.ErrValidation)
	}
	if err := c.Validate(req); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return nil
}

// caller returns the authenticated user. Routes using it sit behind auth.Verifier.
func caller(c echo.Context) (*model.User, error) {
	user := auth.CurrentUser(c)
	if user == nil {
		return nil, apperrors.ErrUnauthenticated
	}
	return user, nil
}
