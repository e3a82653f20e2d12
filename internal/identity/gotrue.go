package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// APIError is the error body returned by a GoTrue-compatible auth server.
// Older servers fill Name/Description, newer ones ErrorCode/Msg.
type APIError struct {
	Status      int    `json:"-"`
	Code        int    `json:"code,omitempty"`
	ErrorCode   string `json:"error_code,omitempty"`
	Msg         string `json:"msg,omitempty"`
	Name        string `json:"error,omitempty"`
	Description string `json:"error_description,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth server returned %d: %s", e.Status, e.message())
}

func (e *APIError) message() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Description != "":
		return e.Description
	case e.Name != "":
		return e.Name
	default:
		return http.StatusText(e.Status)
	}
}

func (e *APIError) clientError() bool {
	return e.Status >= 400 && e.Status < 500
}

func (e *APIError) hasCode(codes ...string) bool {
	for _, c := range codes {
		if e.ErrorCode == c || e.Name == c {
			return true
		}
	}
	return false
}

func (e *APIError) mentions(fragment string) bool {
	return strings.Contains(strings.ToLower(e.message()), fragment)
}

// GoTrueClient is a Provider backed by a GoTrue-compatible REST API.
type GoTrueClient struct {
	http           *resty.Client
	serviceRoleKey string
	now            func() time.Time
}

var _ Provider = (*GoTrueClient)(nil)

// NewGoTrueClient creates a client for the auth server at baseURL. anonKey is
// sent with every request; serviceRoleKey authorizes administrative calls.
func NewGoTrueClient(baseURL, anonKey, serviceRoleKey string, timeout time.Duration) *GoTrueClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("apikey", anonKey).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	return &GoTrueClient{http: client, serviceRoleKey: serviceRoleKey, now: time.Now}
}

func (c *GoTrueClient) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&APIError{})
}

// SignUp creates an unconfirmed account carrying metadata.
func (c *GoTrueClient) SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*Account, error) {
	var out struct {
		Account
		User *Account `json:"user"`
	}
	resp, err := c.request(ctx).
		SetBody(map[string]interface{}{"email": email, "password": password, "data": metadata}).
		SetResult(&out).
		Post("/signup")
	if apiErr, err := check(resp, err); err != nil {
		switch {
		case apiErr == nil:
			return nil, err
		case apiErr.hasCode("user_already_exists", "email_exists") || apiErr.mentions("already registered"):
			return nil, fmt.Errorf("%w: %s", ErrAccountExists, apiErr.message())
		case apiErr.clientError():
			return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, apiErr.message())
		default:
			return nil, Error.Wrap(apiErr)
		}
	}
	// With email confirmation enabled the server returns the bare user; with
	// autoconfirm it returns a session wrapping it.
	if out.User != nil {
		return out.User, nil
	}
	return &out.Account, nil
}

// SignIn exchanges email and password for a session.
func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var out Session
	resp, err := c.request(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/token")
	if apiErr, err := check(resp, err); err != nil {
		switch {
		case apiErr == nil:
			return nil, err
		case apiErr.hasCode("email_not_confirmed") || apiErr.mentions("email not confirmed"):
			return nil, fmt.Errorf("%w: %s", ErrEmailNotConfirmed, apiErr.message())
		case apiErr.clientError():
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.message())
		default:
			return nil, Error.Wrap(apiErr)
		}
	}
	return &out, nil
}

// GetAccount resolves an access token to its account.
func (c *GoTrueClient) GetAccount(ctx context.Context, accessToken string) (*Account, error) {
	if accessToken == "" || expired(accessToken, c.now()) {
		return nil, ErrInvalidToken
	}
	var out Account
	resp, err := c.request(ctx).
		SetAuthToken(accessToken).
		SetResult(&out).
		Get("/user")
	if apiErr, err := check(resp, err); err != nil {
		if apiErr != nil && apiErr.clientError() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidToken, apiErr.message())
		}
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return &out, nil
}

// SendPasswordReset asks the provider to email a recovery link that lands on redirectTo.
func (c *GoTrueClient) SendPasswordReset(ctx context.Context, email, redirectTo string) error {
	req := c.request(ctx).SetBody(map[string]string{"email": email})
	if redirectTo != "" {
		req.SetQueryParam("redirect_to", redirectTo)
	}
	resp, err := req.Post("/recover")
	if apiErr, err := check(resp, err); err != nil {
		if apiErr != nil && apiErr.clientError() {
			return fmt.Errorf("%w: %s", ErrInvalidRequest, apiErr.message())
		}
		return err
	}
	return nil
}

// AdminUpdateAccount changes an account using the service role credential.
func (c *GoTrueClient) AdminUpdateAccount(ctx context.Context, id uuid.UUID, update AccountUpdate) error {
	resp, err := c.request(ctx).
		SetHeader("apikey", c.serviceRoleKey).
		SetAuthToken(c.serviceRoleKey).
		SetPathParam("id", id.String()).
		SetBody(update).
		Put("/admin/users/{id}")
	if apiErr, err := check(resp, err); err != nil {
		if apiErr != nil && apiErr.clientError() {
			return fmt.Errorf("%w: %s", ErrInvalidRequest, apiErr.message())
		}
		return err
	}
	return nil
}

// check folds transport failures and error statuses into one error. The
// returned *APIError is non-nil only for error statuses.
func check(resp *resty.Response, err error) (*APIError, error) {
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if !resp.IsError() {
		return nil, nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = resp.StatusCode()
	if !apiErr.clientError() {
		return apiErr, Error.Wrap(apiErr)
	}
	return apiErr, apiErr
}
