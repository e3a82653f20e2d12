package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
	"github.com/gipity/gipity-scaffold/internal/service"
)

// FileHandler handles upload, download and deletion of user files.
type FileHandler struct {
	fileService service.FileService
}

// NewFileHandler creates a new file handler.
func NewFileHandler(fileService service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// UploadRequest carries a base64 payload, optionally as a data URL.
type UploadRequest struct {
	Base64Data  string `json:"base64Data"`
	FileName    string `json:"fileName" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"omitempty,max=255"`
	Bucket      string `json:"bucket" validate:"omitempty,max=63"`
}

// UploadResponse describes the stored object.
type UploadResponse struct {
	Success     bool   `json:"success"`
	FilePath    string `json:"filePath"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
}

// Upload godoc
// @Summary Upload a base64 encoded file
// @Description The stored path always starts with the caller's user id.
// @Tags files
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UploadRequest true "File payload"
// @Success 200 {object} UploadResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 413 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /upload [post]
func (h *FileHandler) Upload(c echo.Context) error {
	user, err := caller(c)
	if err != nil {
		return err
	}

	var req UploadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	file, err := h.fileService.Upload(c.Request().Context(), user.ID, service.UploadInput{
		Base64Data:  req.Base64Data,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Bucket:      req.Bucket,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, UploadResponse{
		Success:     true,
		FilePath:    file.Path,
		FileName:    file.FileName,
		ContentType: file.ContentType,
		Size:        file.Size,
	})
}

// Download godoc
// @Summary Stream one of the caller's files
// @Tags files
// @Produce octet-stream
// @Security BearerAuth
// @Param bucket path string true "Bucket"
// @Param path path string true "Object path, starting with the caller's id"
// @Success 200 {file} binary
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /file/{bucket}/{path} [get]
func (h *FileHandler) Download(c echo.Context) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	bucket, path, err := objectRef(c)
	if err != nil {
		return err
	}

	obj, err := h.fileService.Download(c.Request().Context(), user.ID, bucket, path)
	if err != nil {
		return err
	}
	defer obj.Body.Close()

	header := c.Response().Header()
	header.Set(echo.HeaderCacheControl, "private, max-age=3600")
	if obj.Size > 0 {
		header.Set(echo.HeaderContentLength, strconv.FormatInt(obj.Size, 10))
	}
	return c.Stream(http.StatusOK, obj.ContentType, obj.Body)
}

// Delete godoc
// @Summary Delete one of the caller's files
// @Tags files
// @Produce json
// @Security BearerAuth
// @Param bucket path string true "Bucket"
// @Param path path string true "Object path, starting with the caller's id"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /file/{bucket}/{path} [delete]
func (h *FileHandler) Delete(c echo.Context) error {
	user, err := caller(c)
	if err != nil {
		return err
	}
	bucket, path, err := objectRef(c)
	if err != nil {
		return err
	}

	if err := h.fileService.Delete(c.Request().Context(), user.ID, bucket, path); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MessageResponse{Success: true, Message: "file deleted"})
}

// objectRef reads bucket and the multi-segment object path from the route.
func objectRef(c echo.Context) (string, string, error) {
	path, err := url.PathUnescape(c.Param("*"))
	if err != nil || path == "" {
		return "", "", apperrors.ErrNotFound
	}
	return c.Param("bucket"), path, nil
}
