package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	apperrors "github.com/gipity/gipity-scaffold/internal/errors"
	"github.com/gipity/gipity-scaffold/internal/model"
	"github.com/gipity/gipity-scaffold/internal/storage"
)

// UploadInput is an upload request from an authenticated caller.
type UploadInput struct {
	Base64Data  string
	FileName    string
	ContentType string
	Bucket      string
}

// FileService stores and serves per-user files. Every path it accepts must sit
// under the caller's own folder.
type FileService interface {
	Upload(ctx context.Context, userID uuid.UUID, in UploadInput) (*model.StoredFile, error)
	Download(ctx context.Context, userID uuid.UUID, bucket, path string) (*storage.Object, error)
	Delete(ctx context.Context, userID uuid.UUID, bucket, path string) error
}

type fileService struct {
	store         storage.ObjectStore
	buckets       map[string]bool
	defaultBucket string

	now     func() time.Time
	newID   func() uuid.UUID
	hrClock func() int64
}

var processStart = time.Now()

// NewFileService creates a file service writing to defaultBucket unless an
// upload names another of the allowed buckets.
func NewFileService(store storage.ObjectStore, defaultBucket string, buckets []string) FileService {
	allowed := map[string]bool{defaultBucket: true}
	for _, b := range buckets {
		allowed[b] = true
	}
	return &fileService{
		store:         store,
		buckets:       allowed,
		defaultBucket: defaultBucket,
		now:           time.Now,
		newID:         uuid.New,
		hrClock:       func() int64 { return time.Since(processStart).Nanoseconds() },
	}
}

func (s *fileService) Upload(ctx context.Context, userID uuid.UUID, in UploadInput) (*model.StoredFile, error) {
	if in.Base64Data == "" {
		return nil, apperrors.ErrNoFileData
	}
	bucket := in.Bucket
	if bucket == "" {
		bucket = s.defaultBucket
	}
	if !s.buckets[bucket] {
		return nil, fmt.Errorf("%w: unknown bucket %q", apperrors.ErrValidation, bucket)
	}

	payload, dataURLType := stripDataURL(in.Base64Data)
	data, err := decodeBase64(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload", apperrors.ErrUploadFailed)
	}
	if len(data) == 0 {
		return nil, apperrors.ErrNoFileData
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = dataURLType
	}
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	path := ObjectPath(userID, fileExtension(in.FileName, contentType), s.now(), s.newID(), s.hrClock())
	if err := s.store.Put(ctx, bucket, path, data, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUploadFailed, err)
	}

	return &model.StoredFile{
		Path:        path,
		FileName:    in.FileName,
		ContentType: contentType,
		Size:        len(data),
	}, nil
}

func (s *fileService) Download(ctx context.Context, userID uuid.UUID, bucket, path string) (*storage.Object, error) {
	if err := s.authorize(userID, bucket, path); err != nil {
		return nil, err
	}
	obj, err := s.store.Get(ctx, bucket, path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Upstream.Wrap(err)
	}
	obj.ContentType = ResolveContentType(path, obj.ContentType)
	return obj, nil
}

func (s *fileService) Delete(ctx context.Context, userID uuid.UUID, bucket, path string) error {
	if err := s.authorize(userID, bucket, path); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, bucket, path); err != nil {
		return apperrors.Upstream.Wrap(err)
	}
	return nil
}

func (s *fileService) authorize(userID uuid.UUID, bucket, path string) error {
	if !s.buckets[bucket] {
		return apperrors.ErrNotFound
	}
	if !OwnsPath(userID, path) {
		return apperrors.ErrForbidden
	}
	return nil
}

// ObjectPath builds {user}/{unix_ms}-{8 hex}-{6 digits}.{ext}. The random id
// and clock reading keep two uploads from one user in the same millisecond apart.
func ObjectPath(userID uuid.UUID, ext string, now time.Time, id uuid.UUID, hrClock int64) string {
	if hrClock < 0 {
		hrClock = -hrClock
	}
	return fmt.Sprintf("%s/%d-%s-%06d.%s",
		userID, now.UnixMilli(), id.String()[:8], hrClock%1_000_000, ext)
}

// OwnsPath reports whether path lies in userID's folder: the first segment must
// equal the user id and no segment may climb out of it.
func OwnsPath(userID uuid.UUID, path string) bool {
	owner, rest, ok := strings.Cut(path, "/")
	if !ok || owner != userID.String() || rest == "" {
		return false
	}
	for _, seg := range strings.Split(rest, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

var extensionTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
}

// ContentTypeForPath infers an image media type from the path's extension,
// defaulting to image/jpeg.
func ContentTypeForPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ct, ok := extensionTypes[ext]; ok {
		return ct
	}
	return "image/jpeg"
}

// ResolveContentType prefers the media type recorded at upload and falls back to
// the extension when the store only has a generic one.
func ResolveContentType(path, stored string) string {
	switch stored {
	case "", "application/octet-stream", "binary/octet-stream":
		return ContentTypeForPath(path)
	default:
		return stored
	}
}

func stripDataURL(s string) (payload, mediaType string) {
	if !strings.HasPrefix(s, "data:") {
		return s, ""
	}
	header, payload, ok := strings.Cut(s, ",")
	if !ok {
		return s, ""
	}
	header = strings.TrimPrefix(header, "data:")
	header = strings.TrimSuffix(header, ";base64")
	return payload, header
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func fileExtension(fileName, contentType string) string {
	ext := sanitizeExt(filepath.Ext(fileName))
	if ext != "" {
		return ext
	}
	if m := mimetype.Lookup(contentType); m != nil {
		if ext := sanitizeExt(m.Extension()); ext != "" {
			return ext
		}
	}
	return "bin"
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() > 10 {
		return ""
	}
	return b.String()
}
