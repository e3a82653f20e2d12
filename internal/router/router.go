package router

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/gipity/gipity-scaffold/internal/auth"
	"github.com/gipity/gipity-scaffold/internal/config"
	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
	"github.com/gipity/gipity-scaffold/internal/handler"
	"github.com/gipity/gipity-scaffold/internal/logger"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the /healthz body. The cache is fail-safe, so an
// unreachable cache degrades the report without failing the check.
type HealthResponse struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log zerolog.Logger,
	cache Pinger,
	authn auth.Authenticator,
	authHandler *handler.AuthHandler,
	noteHandler *handler.NoteHandler,
	fileHandler *handler.FileHandler,
	adminHandler *handler.AdminHandler,
) {
	e.HTTPErrorHandler = ErrorHandler(log, cfg.IsDevelopment())
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.RequestID())
	e.Use(logger.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		resp := HealthResponse{Status: "ok", Cache: "ok"}
		if err := cache.Ping(c.Request().Context()); err != nil {
			log.Warn().Err(err).Msg("cache unreachable")
			resp.Status = "degraded"
			resp.Cache = "unavailable"
		}
		return c.JSON(http.StatusOK, resp)
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/confirm", authHandler.Confirm)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/reset-password", authHandler.ResetPassword)
	// The bearer here is a recovery token, resolved by the handler itself.
	api.POST("/auth/update-password", authHandler.UpdatePassword)

	// Secured routes (require a provider-issued bearer token)
	secured := api.Group("", auth.Verifier(authn))

	secured.GET("/auth/me", authHandler.Me)
	secured.POST("/auth/update-profile", authHandler.UpdateProfile)

	secured.POST("/notes", noteHandler.Create)
	secured.GET("/notes", noteHandler.List)
	secured.GET("/notes/:id", noteHandler.Get)
	secured.PUT("/notes/:id", noteHandler.Update)
	secured.DELETE("/notes/:id", noteHandler.Delete)

	secured.POST("/upload", fileHandler.Upload, middleware.BodyLimit(cfg.UploadMaxBytes))
	secured.GET("/file/:bucket/*", fileHandler.Download)
	secured.DELETE("/file/:bucket/*", fileHandler.Delete)

	admin := secured.Group("/admin", auth.RequireAdmin)
	admin.GET("/users", adminHandler.ListUsers)
}

// ErrorHandler renders every error as an errors.ErrorResponse. Raw error text
// is only exposed in the details field when development is true.
func ErrorHandler(log zerolog.Logger, development bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var status int
		var resp apperrors.ErrorResponse
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			msg, ok := he.Message.(string)
			if !ok {
				msg = http.StatusText(status)
			}
			resp = apperrors.ErrorResponse{Error: msg, Code: apperrors.CodeForStatus(status)}
		} else {
			mapped := apperrors.MapErrorToHTTP(err)
			status = mapped.StatusCode
			resp = mapped.ToErrorResponse()
		}
		if development {
			resp.Details = err.Error()
		}

		if status >= http.StatusInternalServerError {
			log.Error().Err(err).
				Str("method", c.Request().Method).
				Str("uri", c.Request().RequestURI).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, resp)
		}
		if err != nil {
			log.Error().Err(err).Msg("writing error response")
		}
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
