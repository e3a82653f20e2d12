package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
	"github.com/gipity/gipity-scaffold/internal/model"
	"github.com/gipity/gipity-scaffold/internal/service"
)

// NoteHandler handles note endpoints. Every operation is scoped to the caller.
type NoteHandler struct {
	noteService service.NoteService
}

// NewNoteHandler creates a new note handler.
func NewNoteHandler(noteService service.NoteService) *NoteHandler {
	return &NoteHandler{noteService: noteService}
}

// CreateNoteRequest represents a new note.
type CreateNoteRequest struct {
	Title     string  `json:"title" validate:"required,min=1,max=100"`
	Content   string  `json:"content" validate:"required,min=1,max=1000"`
	PhotoPath *string `json:"photo_path" validate:"omitempty,max=512"`
}

// UpdateNoteRequest is a partial update. photo_path may be omitted (keep),
// null (remove the photo) or a new path.
type UpdateNoteRequest struct {
	Title     *string        `json:"title" validate:"omitempty,min=1,max=100"`
	Content   *string        `json:"content" validate:"omitempty,min=1,max=1000"`
	PhotoPath NullableString `json:"photo_path" swaggertype:"string"`
}

// NullableString tells an absent JSON field apart from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler. It is only called when the key is present.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// NoteResponse wraps a single note.
type NoteResponse struct {
	Success bool       `json:"success"`
	Note    model.Note `json:"note"`
}

// NotesResponse wraps the caller's notes.
type NotesResponse struct {
	Success bool         `json:"success"`
	Notes   []model.Note `json:"notes"`
}

// Create godoc
// @Summary Create a note
// @Tags notes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateNoteRequest true "Note"
// @Success 201 {object} NoteResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /notes [post]
func (h *NoteHandler) Create(c echo.Context) error {
	user, err := caller(c)
	if err != nil {
		return err
	}

	var req CreateNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	note, err := h.noteService.Create(c.Request().Context(), user.ID, service.NoteInput{
		Title:     req.Title,
		Content:   req.Content,
		PhotoPath: req.PhotoPath,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, NoteResponse{Success: true, Note: *note})
}

// List godoc
// @Summary List the caller's notes, newest first
// @Tags notes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} NotesResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /notes [get]
func (h *NoteHandler) List(c echo.Context) error {
	user, err := caller(c)
	if err != nil {
		return err
	}

	notes, err := h.noteService.List(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	if notes == nil {
		notes = []model.Note{}
	}

	return c.JSON(http.StatusOK, NotesResponse{Success: true, Notes: notes})
}

// Get godoc
// @Summary Get a note
// @Tags notes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Success 200 {object} NoteResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c echo.Context) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}

	note, err := h.noteService.Get(c.Request().Context(), user.ID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, NoteResponse{Success: true, Note: *note})
}

// Update godoc
// @Summary Update a note
// @Description Clearing or replacing photo_path deletes the previous file.
// @Tags notes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Param request body UpdateNoteRequest true "Fields to change"
// @Success 200 {object} NoteResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(c echo.Context) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}

	var req UpdateNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	note, err := h.noteService.Update(c.Request().Context(), user.ID, id, service.NoteUpdate{
		Title:        req.Title,
		Content:      req.Content,
		PhotoPath:    req.PhotoPath.Value,
		PhotoPathSet: req.PhotoPath.Set,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, NoteResponse{Success: true, Note: *note})
}

// Delete godoc
// @Summary Delete a note and its photo
// @Tags notes
// @Produce json
// @Security BearerAuth
// @Param id path string true "Note ID"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c echo.Context) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}

	if err := h.noteService.Delete(c.Request().Context(), user.ID, id); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "note deleted"})
}

func (h *NoteHandler) target(c echo.Context) (*model.User, uuid.UUID, error) {
	user, err := caller(c)
	if err != nil {
		return nil, uuid.Nil, err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, uuid.Nil, apperrors.ErrNotFound
	}
	return user, id, nil
}
