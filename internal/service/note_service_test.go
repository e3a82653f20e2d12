package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
	"github.com/gipity/gipity-scaffold/internal/model"
)

func newTestNoteService() (NoteService, *MockNoteRepository, *MockFileService) {
	repo := new(MockNoteRepository)
	files := new(MockFileService)
	return NewNoteService(repo, files, "uploads", zerolog.Nop()), repo, files
}

func TestNoteService_Create(t *testing.T) {
	userID := uuid.New()
	photo := userID.String() + "/1-abcdef12-000001.png"

	t.Run("stores the note for the caller", func(t *testing.T) {
		svc, repo, _ := newTestNoteService()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(n *model.Note) bool {
			return n.UserID == userID && n.Title == "T" && n.Content == "C" && *n.PhotoPath == photo
		})).Return(nil)

		note, err := svc.Create(context.Background(), userID, NoteInput{Title: "T", Content: "C", PhotoPath: &photo})

		require.NoError(t, err)
		assert.Equal(t, userID, note.UserID)
		repo.AssertExpectations(t)
	})

	t.Run("photo from another user", func(t *testing.T) {
		svc, repo, _ := newTestNoteService()
		foreign := uuid.New().String() + "/a.png"

		_, err := svc.Create(context.Background(), userID, NoteInput{Title: "T", Content: "C", PhotoPath: &foreign})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestNoteService_Get(t *testing.T) {
	userID, noteID := uuid.New(), uuid.New()
	svc, repo, _ := newTestNoteService()
	repo.On("FindByID", mock.Anything, userID, noteID).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.Get(context.Background(), userID, noteID)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNoteService_Update_Photo(t *testing.T) {
	userID, noteID := uuid.New(), uuid.New()
	oldPhoto := userID.String() + "/old.jpg"
	newPhoto := userID.String() + "/new.jpg"

	tests := []struct {
		name        string
		update      NoteUpdate
		wantDeleted bool
		wantChange  interface{}
	}{
		{
			name:        "cleared",
			update:      NoteUpdate{PhotoPathSet: true},
			wantDeleted: true,
			wantChange:  nil,
		},
		{
			name:        "replaced",
			update:      NoteUpdate{PhotoPath: &newPhoto, PhotoPathSet: true},
			wantDeleted: true,
			wantChange:  newPhoto,
		},
		{
			name:       "unchanged",
			update:     NoteUpdate{PhotoPath: &oldPhoto, PhotoPathSet: true},
			wantChange: oldPhoto,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, files := newTestNoteService()
			current := &model.Note{ID: noteID, UserID: userID, Title: "T", Content: "C", PhotoPath: &oldPhoto}
			repo.On("FindByID", mock.Anything, userID, noteID).Return(current, nil)
			repo.On("Update", mock.Anything, userID, noteID, map[string]interface{}{"photo_path": tt.wantChange}).Return(nil)
			if tt.wantDeleted {
				files.On("Delete", mock.Anything, userID, "uploads", oldPhoto).Return(nil).Once()
			}

			_, err := svc.Update(context.Background(), userID, noteID, tt.update)

			require.NoError(t, err)
			if tt.wantDeleted {
				files.AssertNumberOfCalls(t, "Delete", 1)
			} else {
				files.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestNoteService_Update_CleanupFailureIsNotFatal(t *testing.T) {
	userID, noteID := uuid.New(), uuid.New()
	oldPhoto := userID.String() + "/old.jpg"

	svc, repo, files := newTestNoteService()
	repo.On("FindByID", mock.Anything, userID, noteID).Return(&model.Note{ID: noteID, UserID: userID, PhotoPath: &oldPhoto}, nil)
	repo.On("Update", mock.Anything, userID, noteID, mock.Anything).Return(nil)
	files.On("Delete", mock.Anything, userID, "uploads", oldPhoto).Return(apperrors.Upstream.New("storage down"))

	_, err := svc.Update(context.Background(), userID, noteID, NoteUpdate{PhotoPathSet: true})

	assert.NoError(t, err)
}

func TestNoteService_Update_Fields(t *testing.T) {
	userID, noteID := uuid.New(), uuid.New()
	title := "New title"

	svc, repo, files := newTestNoteService()
	repo.On("FindByID", mock.Anything, userID, noteID).Return(&model.Note{ID: noteID, UserID: userID, Title: "T"}, nil)
	repo.On("Update", mock.Anything, userID, noteID, map[string]interface{}{"title": title}).Return(nil)

	_, err := svc.Update(context.Background(), userID, noteID, NoteUpdate{Title: &title})

	require.NoError(t, err)
	files.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestNoteService_Update_NotOwned(t *testing.T) {
	userID, noteID := uuid.New(), uuid.New()
	svc, repo, _ := newTestNoteService()
	repo.On("FindByID", mock.Anything, userID, noteID).Return(nil, gorm.ErrRecordNotFound)

	title := "x"
	_, err := svc.Update(context.Background(), userID, noteID, NoteUpdate{Title: &title})

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNoteService_Delete(t *testing.T) {
	userID, noteID := uuid.New(), uuid.New()
	photo := userID.String() + "/a.png"

	svc, repo, files := newTestNoteService()
	repo.On("FindByID", mock.Anything, userID, noteID).Return(&model.Note{ID: noteID, UserID: userID, PhotoPath: &photo}, nil)
	files.On("Delete", mock.Anything, userID, "uploads", photo).Return(nil).Once()
	repo.On("Delete", mock.Anything, userID, noteID).Return(nil)

	require.NoError(t, svc.Delete(context.Background(), userID, noteID))
	files.AssertExpectations(t)
	repo.AssertExpectations(t)
}
