// Package identity talks to the external identity provider that owns accounts,
// passwords and access tokens. Nothing here stores credentials locally.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
)

// Error classifies transport and unexpected provider failures.
var Error = errs.Class("identity")

var (
	// ErrInvalidCredentials is returned when the provider rejects email/password.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrEmailNotConfirmed is returned when credentials match an unconfirmed account.
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	// ErrAccountExists is returned by sign-up for an email the provider already holds.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidToken is returned when a token is expired, revoked or unknown.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidRequest is returned when the provider rejects the request payload.
	ErrInvalidRequest = errors.New("request rejected by identity provider")
)

// Account is a provider-side account.
type Account struct {
	ID               uuid.UUID              `json:"id"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty"`
	ConfirmedAt      *time.Time             `json:"confirmed_at,omitempty"`
	UserMetadata     map[string]interface{} `json:"user_metadata,omitempty"`
}

// Confirmed reports whether the account's email address has been verified.
func (a *Account) Confirmed() bool {
	return a.EmailConfirmedAt != nil || a.ConfirmedAt != nil
}

// MetadataString returns a string metadata value, or "" when absent.
func (a *Account) MetadataString(key string) string {
	if a.UserMetadata == nil {
		return ""
	}
	s, _ := a.UserMetadata[key].(string)
	return s
}

// Session is the result of a password sign-in.
type Session struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    int     `json:"expires_in"`
	RefreshToken string  `json:"refresh_token"`
	Account      Account `json:"user"`
}

// AccountUpdate carries the fields an administrative update may change.
// A nil field is left untouched.
type AccountUpdate struct {
	Password     *string                `json:"password,omitempty"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// Provider is the narrow surface of the identity provider used by this service.
// Implementations make exactly one upstream call per method and never retry.
type Provider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]interface{}) (*Account, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	GetAccount(ctx context.Context, accessToken string) (*Account, error)
	SendPasswordReset(ctx context.Context, email, redirectTo string) error
	AdminUpdateAccount(ctx context.Context, id uuid.UUID, update AccountUpdate) error
}
