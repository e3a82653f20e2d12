package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gipity/gipity-scaffold/internal/model"
)

// NoteRepository defines note persistence operations. Every method is scoped to
// the owning user.
type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Note, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Note, error)
	Update(ctx context.Context, userID, id uuid.UUID, changes map[string]interface{}) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type noteRepository struct {
	notes ownedTable[model.Note]
}

// NewNoteRepository builds a GORM-backed repository.
func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{notes: newOwnedTable[model.Note](db, "user_id")}
}

func (r *noteRepository) Create(ctx context.Context, note *model.Note) error {
	return r.notes.Insert(ctx, note)
}

func (r *noteRepository) FindByID(ctx context.Context, userID, id uuid.UUID) (*model.Note, error) {
	return r.notes.Get(ctx, userID, id)
}

// ListByUser returns the user's notes, newest first.
func (r *noteRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Note, error) {
	return r.notes.List(ctx, userID, "created_at DESC")
}

func (r *noteRepository) Update(ctx context.Context, userID, id uuid.UUID, changes map[string]interface{}) error {
	return r.notes.Update(ctx, userID, id, changes)
}

func (r *noteRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.notes.Delete(ctx, userID, id)
}
