package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gipity/gipity-scaffold/internal/model"
	"github.com/gipity/gipity-scaffold/internal/service"
)

// AdminHandler serves admin-only endpoints.
type AdminHandler struct {
	userService service.UserService
}

// NewAdminHandler creates a handler layer.
func NewAdminHandler(userService service.UserService) *AdminHandler {
	return &AdminHandler{userService: userService}
}

// UsersResponse lists users.
type UsersResponse struct {
	Success bool             `json:"success"`
	Users   []model.UserView `json:"users"`
}

// ListUsers godoc
// @Summary List all users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UsersResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.userService.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}

	views := make([]model.UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].View())
	}
	return c.JSON(http.StatusOK, UsersResponse{Success: true, Users: views})
}
