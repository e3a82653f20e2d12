package router

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gipity/gipity-scaffold/internal/cache"
	"github.com/gipity/gipity-scaffold/internal/config"
	"github.com/gipity/gipity-scaffold/internal/db"
	"github.com/gipity/gipity-scaffold/internal/handler"
	"github.com/gipity/gipity-scaffold/internal/model"
	"github.com/gipity/gipity-scaffold/internal/notify"
	"github.com/gipity/gipity-scaffold/internal/repository"
	"github.com/gipity/gipity-scaffold/internal/service"
)

type testApp struct {
	e        *echo.Echo
	provider *fakeProvider
	store    *memStore
	users    repository.UserRepository
	redis    *miniredis.Miniredis
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	gdb, err := db.Open("sqlite", filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	log := zerolog.Nop()
	cfg := &config.Config{
		AppEnv:           "test",
		CORSAllowOrigins: []string{"*"},
		UploadMaxBytes:   "1M",
	}

	app := &testApp{
		e:        echo.New(),
		provider: newFakeProvider(),
		store:    newMemStore(),
		users:    repository.NewUserRepository(gdb, db.DetectSchema(gdb)),
		redis:    miniredis.RunT(t),
	}
	cacheClient := cache.New(app.redis.Addr(), "", 0, log)
	t.Cleanup(func() { cacheClient.Close() })

	userService := service.NewUserService(app.users, nil, time.Minute)
	authService := service.NewAuthService(app.provider, userService, app.users, notify.NewLogNotifier(log), "http://localhost/reset", log)
	fileService := service.NewFileService(app.store, "uploads", []string{"uploads"})
	noteService := service.NewNoteService(repository.NewNoteRepository(gdb), fileService, "uploads", log)

	Register(app.e, cfg, log, cacheClient, authService,
		handler.NewAuthHandler(authService, userService),
		handler.NewNoteHandler(noteService),
		handler.NewFileHandler(fileService),
		handler.NewAdminHandler(userService),
	)
	return app
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

// signUp registers, confirms and logs in a user, returning the bearer token.
func (a *testApp) signUp(t *testing.T, email string) (string, model.UserView) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "pw123456", "first_name": "Ann", "last_name": "Lee",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/auth/confirm", "", map[string]string{
		"access_token": a.provider.confirmLink(email), "type": "signup",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "pw123456"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login handler.LoginResponse
	decode(t, rec, &login)
	return login.Token, login.User
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	decode(t, rec, &health)
	assert.Equal(t, HealthResponse{Status: "ok", Cache: "ok"}, health)

	app.redis.Close()
	rec = app.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &health)
	assert.Equal(t, HealthResponse{Status: "degraded", Cache: "unavailable"}, health)
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	rec := app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "a@x.com", "password": "pw123456", "first_name": "Ann", "last_name": "Lee",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	_, err := app.users.FindByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "no local row before confirmation")

	rec = app.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@x.com", "password": "pw123456"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMAIL_NOT_CONFIRMED")

	link := app.provider.confirmLink("a@x.com")
	for i := 0; i < 2; i++ {
		rec = app.do(t, http.MethodPost, "/api/auth/confirm", "", map[string]string{"access_token": link, "type": "signup"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	users, err := app.users.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	require.NotNil(t, users[0].FirstName)
	assert.Equal(t, "Ann", *users[0].FirstName)

	rec = app.do(t, http.MethodPost, "/api/auth/confirm", "", map[string]string{"access_token": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")

	rec = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "pw123456"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login map[string]interface{}
	decode(t, rec, &login)
	assert.Equal(t, true, login["success"])
	user := login["user"].(map[string]interface{})
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, false, user["isAdmin"])

	rec = app.do(t, http.MethodGet, "/api/auth/me", login["token"].(string), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/update-profile", login["token"].(string), map[string]string{"first_name": "Anne"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var profile handler.UserResponse
	decode(t, rec, &profile)
	assert.Equal(t, "Anne", *profile.User.FirstName)
	assert.Nil(t, profile.User.LastName)
}

func TestAuthFlow_PasswordUpdate(t *testing.T) {
	app := newTestApp(t)
	app.signUp(t, "a@x.com")

	rec := app.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/auth/update-password", "expired", map[string]string{"password": "newpass1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	recovery := app.provider.confirmLink("a@x.com")
	rec = app.do(t, http.MethodPost, "/api/auth/update-password", recovery, map[string]string{"password": "newpass1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.com", "password": "newpass1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecuredRoutesRequireBearer(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/api/notes", "/api/auth/me"} {
		rec := app.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)

		var body map[string]interface{}
		decode(t, rec, &body)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "UNAUTHENTICATED", body["code"])
		assert.NotContains(t, body, "details")
	}

	rec := app.do(t, http.MethodGet, "/api/notes", "not-a-session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutes(t *testing.T) {
	app := newTestApp(t)
	token, view := app.signUp(t, "a@x.com")

	rec := app.do(t, http.MethodGet, "/api/admin/users", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, app.users.UpdateRole(context.Background(), view.ID, model.RoleAdmin))

	rec = app.do(t, http.MethodGet, "/api/admin/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body handler.UsersResponse
	decode(t, rec, &body)
	require.Len(t, body.Users, 1)
	assert.True(t, body.Users[0].IsAdmin)
}

func TestNotes(t *testing.T) {
	app := newTestApp(t)
	token, _ := app.signUp(t, "a@x.com")
	otherToken, _ := app.signUp(t, "b@x.com")

	rec := app.do(t, http.MethodPost, "/api/notes", token, map[string]string{"title": "T", "content": "C"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created handler.NoteResponse
	decode(t, rec, &created)

	rec = app.do(t, http.MethodGet, "/api/notes", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var raw struct {
		Notes []map[string]interface{} `json:"notes"`
	}
	decode(t, rec, &raw)
	require.Len(t, raw.Notes, 1)
	assert.Equal(t, "T", raw.Notes[0]["title"])
	assert.Equal(t, "C", raw.Notes[0]["content"])
	photo, present := raw.Notes[0]["photo_path"]
	assert.True(t, present)
	assert.Nil(t, photo)

	notePath := "/api/notes/" + created.Note.ID.String()

	rec = app.do(t, http.MethodGet, notePath, otherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "other users cannot see the note")

	rec = app.do(t, http.MethodPut, notePath, otherToken, map[string]string{"title": "stolen"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/notes", token, map[string]string{"title": "", "content": "C"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPut, notePath, token, map[string]string{"title": "T2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated handler.NoteResponse
	decode(t, rec, &updated)
	assert.Equal(t, "T2", updated.Note.Title)
	assert.Equal(t, "C", updated.Note.Content)

	rec = app.do(t, http.MethodDelete, notePath, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, notePath, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadAndNotePhotos(t *testing.T) {
	app := newTestApp(t)
	token, user := app.signUp(t, "a@x.com")
	otherToken, _ := app.signUp(t, "b@x.com")

	payload := base64.StdEncoding.EncodeToString([]byte("0123456789"))
	rec := app.do(t, http.MethodPost, "/api/upload", token, map[string]string{"base64Data": payload, "fileName": "x.png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var upload handler.UploadResponse
	decode(t, rec, &upload)
	assert.Equal(t, 10, upload.Size)
	assert.Regexp(t, fmt.Sprintf(`^%s/\d+-[0-9a-f]{8}-\d{6}\.png$`, user.ID), upload.FilePath)

	rec = app.do(t, http.MethodPost, "/api/upload", token, map[string]string{"fileName": "x.png"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "NO_FILE_DATA")

	filePath := "/api/file/uploads/" + upload.FilePath
	rec = app.do(t, http.MethodGet, filePath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0123456789", rec.Body.String())
	assert.Equal(t, "private, max-age=3600", rec.Header().Get(echo.HeaderCacheControl))

	rec = app.do(t, http.MethodGet, filePath, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = app.do(t, http.MethodDelete, filePath, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/file/other-bucket/"+upload.FilePath, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/notes", otherToken, map[string]string{"title": "T", "content": "C", "photo_path": upload.FilePath})
	assert.Equal(t, http.StatusForbidden, rec.Code, "photo must belong to the caller")

	rec = app.do(t, http.MethodPost, "/api/notes", token, map[string]string{"title": "T", "content": "C", "photo_path": upload.FilePath})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var note handler.NoteResponse
	decode(t, rec, &note)
	require.NotNil(t, note.Note.PhotoPath)
	assert.Equal(t, upload.FilePath, *note.Note.PhotoPath)

	notePath := "/api/notes/" + note.Note.ID.String()

	rec = app.do(t, http.MethodGet, notePath, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched handler.NoteResponse
	decode(t, rec, &fetched)
	assert.Equal(t, "T", fetched.Note.Title)
	assert.Equal(t, "C", fetched.Note.Content)
	assert.Equal(t, upload.FilePath, *fetched.Note.PhotoPath)

	rec = app.do(t, http.MethodPut, notePath, token, map[string]string{"photo_path": upload.FilePath})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, app.store.has("uploads", upload.FilePath), "keeping the same photo deletes nothing")

	rec = app.do(t, http.MethodPut, notePath, token, map[string]interface{}{"photo_path": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cleared handler.NoteResponse
	decode(t, rec, &cleared)
	assert.Nil(t, cleared.Note.PhotoPath)
	assert.False(t, app.store.has("uploads", upload.FilePath))
	assert.Equal(t, 1, app.store.deleteCount("uploads", upload.FilePath))
}

func TestErrorHandler_Development(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zerolog.Nop(), true)
	e.GET("/boom", func(c echo.Context) error {
		return fmt.Errorf("database exploded")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Equal(t, "internal server error", body["error"])
	assert.Equal(t, "database exploded", body["details"])

	req = httptest.NewRequest(http.MethodGet, "/missing", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
}
