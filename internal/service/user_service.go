package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gipity/gipity-scaffold/internal/cache"
	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
	"github.com/gipity/gipity-scaffold/internal/model"
	"github.com/gipity/gipity-scaffold/internal/repository"
)

// UserService exposes user record operations. Reads by id go through the cache.
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName string) (*model.User, error)
	SetRole(ctx context.Context, email string, role model.Role) (*model.User, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
	ttl   time.Duration
}

// NewUserService builds a UserService with repository and cache. A nil cache disables caching.
func NewUserService(repo repository.UserRepository, cache *cache.Client, ttl time.Duration) UserService {
	return &userService{repo: repo, cache: cache, ttl: ttl}
}

func (s *userService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, s.cacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Upstream.Wrap(err)
	}

	s.cache.SetJSON(ctx, s.cacheKey(id), user, s.ttl)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Upstream.Wrap(err)
	}
	return users, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName string) (*model.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	user.FirstName = optional(firstName)
	user.LastName = optional(lastName)
	if err := s.repo.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Upstream.Wrap(err)
	}

	s.cache.Delete(ctx, s.cacheKey(id))
	return user, nil
}

// SetRole is the administrative role change used by the operator CLI.
func (s *userService) SetRole(ctx context.Context, email string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperrors.ErrValidation, role)
	}
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Upstream.Wrap(err)
	}
	if err := s.repo.UpdateRole(ctx, user.ID, role); err != nil {
		return nil, apperrors.Upstream.Wrap(err)
	}
	s.cache.Delete(ctx, s.cacheKey(user.ID))
	user.Role = role
	return user, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
