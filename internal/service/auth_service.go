package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
	"github.com/gipity/gipity-scaffold/internal/identity"
	"github.com/gipity/gipity-scaffold/internal/model"
	"github.com/gipity/gipity-scaffold/internal/notify"
	"github.com/gipity/gipity-scaffold/internal/repository"
)

// Provisional profile fields carried in provider metadata between sign-up and
// confirmation.
const (
	metaFirstName = "first_name"
	metaLastName  = "last_name"
)

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginResult is an opaque bearer token plus the sanitized user.
type LoginResult struct {
	Token string         `json:"token"`
	User  model.UserView `json:"user"`
}

// AuthService wraps the identity provider for sign-up, confirmation, sign-in,
// password management and bearer-token resolution. It keeps no session state.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) error
	Confirm(ctx context.Context, accessToken string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, recoveryToken, password string) error
	Authenticate(ctx context.Context, accessToken string) (*model.User, error)
}

type authService struct {
	provider         identity.Provider
	users            UserService
	userRepo         repository.UserRepository
	notifier         notify.Notifier
	passwordResetURL string
	log              zerolog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	provider identity.Provider,
	users UserService,
	userRepo repository.UserRepository,
	notifier notify.Notifier,
	passwordResetURL string,
	log zerolog.Logger,
) AuthService {
	return &authService{
		provider:         provider,
		users:            users,
		userRepo:         userRepo,
		notifier:         notifier,
		passwordResetURL: passwordResetURL,
		log:              log.With().Str("component", "auth").Logger(),
	}
}

// Register creates an unconfirmed provider account. The local user row is only
// created by Confirm, so accounts that never confirm leave nothing behind.
func (s *authService) Register(ctx context.Context, in RegisterInput) error {
	email := normalizeEmail(in.Email)

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return apperrors.ErrConflict
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.Upstream.Wrap(err)
	}

	_, err = s.provider.SignUp(ctx, email, in.Password, map[string]interface{}{
		metaFirstName: in.FirstName,
		metaLastName:  in.LastName,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, identity.ErrAccountExists):
		return apperrors.ErrConflict
	case errors.Is(err, identity.ErrInvalidRequest):
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	default:
		return apperrors.Upstream.Wrap(err)
	}
}

// Confirm completes registration for the account behind an email-link token.
// Calling it again for an already mirrored account returns the existing row.
func (s *authService) Confirm(ctx context.Context, accessToken string) (*model.User, error) {
	acct, err := s.provider.GetAccount(ctx, accessToken)
	if err != nil {
		if identity.Error.Has(err) {
			return nil, apperrors.Upstream.Wrap(err)
		}
		return nil, apperrors.ErrInvalidToken
	}
	if !acct.Confirmed() {
		return nil, apperrors.ErrNotConfirmed
	}

	existing, err := s.userRepo.FindByID(ctx, acct.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Upstream.Wrap(err)
	}

	user := &model.User{
		ID:        acct.ID,
		Email:     normalizeEmail(acct.Email),
		Role:      model.RoleUser,
		FirstName: optional(acct.MetadataString(metaFirstName)),
		LastName:  optional(acct.MetadataString(metaLastName)),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent confirmation may have inserted the row first.
		if again, findErr := s.userRepo.FindByID(ctx, acct.ID); findErr == nil {
			return again, nil
		}
		return nil, apperrors.Upstream.Wrap(err)
	}

	s.clearProvisionalMetadata(ctx, acct.ID)
	if err := s.notifier.SendWelcome(ctx, user.Email, acct.MetadataString(metaFirstName)); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("welcome notification failed")
	}
	return user, nil
}

// clearProvisionalMetadata removes the sign-up name fields from the provider
// account. Known limitation: the provider merges metadata updates and does not
// always drop the keys, so stale names may remain upstream. Failures are logged.
func (s *authService) clearProvisionalMetadata(ctx context.Context, id uuid.UUID) {
	err := s.provider.AdminUpdateAccount(ctx, id, identity.AccountUpdate{
		UserMetadata: map[string]interface{}{metaFirstName: nil, metaLastName: nil},
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", id.String()).Msg("clearing provisional metadata failed")
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	sess, err := s.provider.SignIn(ctx, normalizeEmail(email), password)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrEmailNotConfirmed):
		return nil, apperrors.ErrEmailNotConfirmed
	case errors.Is(err, identity.ErrInvalidCredentials):
		return nil, apperrors.ErrInvalidCredentials
	default:
		return nil, apperrors.Upstream.Wrap(err)
	}
	if !sess.Account.Confirmed() {
		return nil, apperrors.ErrEmailNotConfirmed
	}

	user, err := s.users.GetUser(ctx, sess.Account.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: sess.AccessToken, User: user.View()}, nil
}

func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	err := s.provider.SendPasswordReset(ctx, normalizeEmail(email), s.passwordResetURL)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, identity.ErrInvalidRequest):
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	default:
		return apperrors.Upstream.Wrap(err)
	}
}

// UpdatePassword sets a new password for the account behind a recovery token.
// The change itself is made with the provider's administrative credential.
func (s *authService) UpdatePassword(ctx context.Context, recoveryToken, password string) error {
	acct, err := s.provider.GetAccount(ctx, recoveryToken)
	if err != nil {
		if identity.Error.Has(err) {
			return apperrors.Upstream.Wrap(err)
		}
		return apperrors.ErrInvalidOrExpiredSession
	}

	err = s.provider.AdminUpdateAccount(ctx, acct.ID, identity.AccountUpdate{Password: &password})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, identity.ErrInvalidRequest):
		return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	default:
		return apperrors.Upstream.Wrap(err)
	}
}

// Authenticate resolves a bearer token to the local user record. Any provider
// failure is terminal and reported as ErrUnauthenticated.
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	acct, err := s.provider.GetAccount(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}
	return s.users.GetUser(ctx, acct.ID)
}
