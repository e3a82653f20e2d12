package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gipity/gipity-scaffold/internal/auth"
	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
	"github.com/gipity/gipity-scaffold/internal/model"
	"github.com/gipity/gipity-scaffold/internal/service"
)

// AuthHandler handles authentication and profile endpoints.
type AuthHandler struct {
	authService service.AuthService
	userService service.UserService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, userService service.UserService) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService}
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// ConfirmRequest carries the token from the confirmation email link.
type ConfirmRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
	Type        string `json:"type"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordRequest asks for a password recovery email.
type ResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UpdatePasswordRequest sets a new password; the recovery token is the bearer.
type UpdatePasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateProfileRequest changes the caller's display name.
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// ConfirmResponse reports a completed confirmation.
type ConfirmResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	User    *model.UserView `json:"user,omitempty"`
}

// LoginResponse represents a successful login.
type LoginResponse struct {
	Success bool           `json:"success"`
	Token   string         `json:"token"`
	User    model.UserView `json:"user"`
}

// Register godoc
// @Summary Register a new user
// @Description Creates an unconfirmed account and sends a confirmation email.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.authService.Register(c.Request().Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, MessageResponse{
		Success: true,
		Message: "registration successful, check your email to confirm your account",
	})
}

// Confirm godoc
// @Summary Confirm an email address
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ConfirmRequest true "Token from the confirmation link"
// @Success 200 {object} ConfirmResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/confirm [post]
func (h *AuthHandler) Confirm(c echo.Context) error {
	var req ConfirmRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Confirm(c.Request().Context(), req.AccessToken)
	if err != nil {
		return err
	}

	view := user.View()
	return c.JSON(http.StatusOK, ConfirmResponse{
		Success: true,
		Message: "email confirmed",
		User:    &view,
	})
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Success: true,
		Token:   result.Token,
		User:    result.User,
	})
}

// ResetPassword godoc
// @Summary Request a password reset email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{
		Success: true,
		Message: "password reset email sent",
	})
}

// UpdatePassword godoc
// @Summary Set a new password
// @Description The bearer token is the recovery token from the reset email.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdatePasswordRequest true "New password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/update-password [post]
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	token, ok := auth.BearerToken(c)
	if !ok {
		return apperrors.ErrUnauthenticated
	}

	var req UpdatePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.UpdatePassword(c.Request().Context(), token, req.Password); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{
		Success: true,
		Message: "password updated",
	})
}

// UpdateProfile godoc
// @Summary Update the caller's name
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/update-profile [post]
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	user, err := caller(c)
	if err != nil {
		return err
	}

	var req UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.userService.UpdateProfile(c.Request().Context(), user.ID, req.FirstName, req.LastName)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, UserResponse{Success: true, User: updated.View()})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserResponse{Success: true, User: user.View()})
}
