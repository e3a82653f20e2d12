package errors

import (
	"errors"
	"net/http"

	"github.com/zeebo/errs"
)

var (
	// ErrValidation is returned when a request body is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated is returned when a credential is missing, invalid or expired.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller is authenticated but not allowed.
	ErrForbidden = errors.New("access denied")
	// ErrNotFound is returned when a resource is absent or not owned by the caller.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict is returned when registering an email that already exists.
	ErrConflict = errors.New("user with this email already exists")
	// ErrUserNotFound is returned when the identity provider knows an account
	// that has no local user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailNotConfirmed is returned on login before the email link was followed.
	ErrEmailNotConfirmed = errors.New("please confirm your email address before logging in")
	// ErrNotConfirmed is returned by confirmation when the account is still unconfirmed.
	ErrNotConfirmed = errors.New("email not confirmed")
	// ErrInvalidToken is returned when a confirmation token cannot be resolved.
	ErrInvalidToken = errors.New("invalid or expired confirmation token")
	// ErrInvalidOrExpiredSession is returned when a recovery token cannot be resolved.
	ErrInvalidOrExpiredSession = errors.New("invalid or expired session")
	// ErrNoFileData is returned when an upload carries no payload.
	ErrNoFileData = errors.New("no file data provided")
	// ErrUploadFailed is returned when a payload could not be written to storage.
	ErrUploadFailed = errors.New("failed to upload file")
)

// Upstream classifies failures of the identity provider, the object store or the database.
var Upstream = errs.Class("upstream")

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mapping = []struct {
	err    error
	status int
	code   string
}{
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrNoFileData, http.StatusBadRequest, "NO_FILE_DATA"},
	{ErrInvalidToken, http.StatusBadRequest, "INVALID_TOKEN"},
	{ErrNotConfirmed, http.StatusBadRequest, "NOT_CONFIRMED"},
	{ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrEmailNotConfirmed, http.StatusUnauthorized, "EMAIL_NOT_CONFIRMED"},
	{ErrInvalidOrExpiredSession, http.StatusUnauthorized, "INVALID_SESSION"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrConflict, http.StatusConflict, "CONFLICT"},
	{ErrUploadFailed, http.StatusInternalServerError, "UPLOAD_FAILED"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Upstream and unknown errors
// get a generic message; their text never reaches the message field.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mapping {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.err.Error(), m.code)
		}
	}
	if Upstream.Has(err) {
		return NewHTTPError(http.StatusInternalServerError, "upstream service error", "UPSTREAM_FAILURE")
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}

// CodeForStatus returns the response code used for errors raised by the framework
// itself (unknown routes, oversized bodies) rather than by domain code.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	default:
		if status >= 500 {
			return "INTERNAL_ERROR"
		}
		return "REQUEST_ERROR"
	}
}
