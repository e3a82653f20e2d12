package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
	"github.com/gipity/gipity-scaffold/internal/model"
	"github.com/gipity/gipity-scaffold/internal/repository"
)

// NoteInput is the payload for creating a note.
type NoteInput struct {
	Title     string
	Content   string
	PhotoPath *string
}

// NoteUpdate is a partial note change. PhotoPathSet distinguishes an explicit
// null (clear the photo) from an absent field.
type NoteUpdate struct {
	Title        *string
	Content      *string
	PhotoPath    *string
	PhotoPathSet bool
}

// NoteService handles note CRUD for the owning user.
//
// Photo cleanup is sequential and not atomic with the row change: the previous
// file is deleted first, and a failed deletion is logged while the row update
// or delete still goes ahead.
type NoteService interface {
	Create(ctx context.Context, userID uuid.UUID, in NoteInput) (*model.Note, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Note, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Note, error)
	Update(ctx context.Context, userID, id uuid.UUID, in NoteUpdate) (*model.Note, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type noteService struct {
	repo        repository.NoteRepository
	files       FileService
	photoBucket string
	log         zerolog.Logger
}

// NewNoteService creates a note service. Photos live in photoBucket.
func NewNoteService(repo repository.NoteRepository, files FileService, photoBucket string, log zerolog.Logger) NoteService {
	return &noteService{
		repo:        repo,
		files:       files,
		photoBucket: photoBucket,
		log:         log.With().Str("component", "notes").Logger(),
	}
}

func (s *noteService) Create(ctx context.Context, userID uuid.UUID, in NoteInput) (*model.Note, error) {
	in.PhotoPath = blankToNil(in.PhotoPath)
	if in.PhotoPath != nil && !OwnsPath(userID, *in.PhotoPath) {
		return nil, apperrors.ErrForbidden
	}
	note := &model.Note{
		UserID:    userID,
		Title:     in.Title,
		Content:   in.Content,
		PhotoPath: in.PhotoPath,
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, apperrors.Upstream.Wrap(err)
	}
	return note, nil
}

func (s *noteService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Note, error) {
	note, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, notFoundOrUpstream(err)
	}
	return note, nil
}

func (s *noteService) List(ctx context.Context, userID uuid.UUID) ([]model.Note, error) {
	notes, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Upstream.Wrap(err)
	}
	return notes, nil
}

func (s *noteService) Update(ctx context.Context, userID, id uuid.UUID, in NoteUpdate) (*model.Note, error) {
	note, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, notFoundOrUpstream(err)
	}

	changes := map[string]interface{}{}
	if in.Title != nil {
		changes["title"] = *in.Title
	}
	if in.Content != nil {
		changes["content"] = *in.Content
	}
	if in.PhotoPathSet {
		in.PhotoPath = blankToNil(in.PhotoPath)
		if in.PhotoPath != nil && !OwnsPath(userID, *in.PhotoPath) {
			return nil, apperrors.ErrForbidden
		}
		if photoReplaced(note.PhotoPath, in.PhotoPath) {
			s.removePhoto(ctx, userID, *note.PhotoPath)
		}
		if in.PhotoPath == nil {
			changes["photo_path"] = nil
		} else {
			changes["photo_path"] = *in.PhotoPath
		}
	}
	if len(changes) == 0 {
		return note, nil
	}

	if err := s.repo.Update(ctx, userID, id, changes); err != nil {
		return nil, notFoundOrUpstream(err)
	}
	return s.Get(ctx, userID, id)
}

func (s *noteService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	note, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return notFoundOrUpstream(err)
	}
	if note.PhotoPath != nil {
		s.removePhoto(ctx, userID, *note.PhotoPath)
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return notFoundOrUpstream(err)
	}
	return nil
}

func (s *noteService) removePhoto(ctx context.Context, userID uuid.UUID, path string) {
	if err := s.files.Delete(ctx, userID, s.photoBucket, path); err != nil {
		s.log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("path", path).
			Msg("stale photo cleanup failed")
	}
}

// photoReplaced reports whether moving from old to next orphans a stored file.
func photoReplaced(old, next *string) bool {
	if old == nil {
		return false
	}
	return next == nil || *next != *old
}

// blankToNil treats an empty photo path as no photo.
func blankToNil(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

func notFoundOrUpstream(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return apperrors.Upstream.Wrap(err)
}
